package port

import (
	"context"

	"coil-vision/internal/domain/entity"
)

// FrameSource поставщик кадров одной линии. Конец потока — io.EOF.
type FrameSource interface {
	Next(ctx context.Context) (entity.RawFrame, error)
}
