package port

import "coil-vision/internal/domain/entity"

// FrameDecoder переводит сырой кадр камеры в кадр в оттенках серого
type FrameDecoder interface {
	Decode(raw entity.RawFrame) (entity.Frame, error)
}
