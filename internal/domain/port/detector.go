package port

import (
	"context"

	"coil-vision/internal/domain/entity"
)

// DefectDetector интерфейс детектора дефектов
type DefectDetector interface {
	// Detect ищет дефекты на кадре и возвращает те, что увереннее порога
	Detect(ctx context.Context, frame entity.Frame, confidence float64) ([]entity.Defect, error)
}
