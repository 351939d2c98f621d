package port

import "coil-vision/internal/domain/entity"

// EdgeRasterBuilder строит бинарную карту границ рулона.
// Карта имеет размер кадра, уменьшенного в resizeRatio раз.
type EdgeRasterBuilder interface {
	Build(frame entity.Frame, resizeRatio float64) (*entity.EdgeRaster, error)
}
