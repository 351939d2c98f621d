package ingest

import (
	"encoding/binary"
	"image"

	"github.com/pkg/errors"

	"coil-vision/internal/domain/entity"
	"coil-vision/internal/domain/port"
)

// Глубина кадра Mono12
const mono12BitDepth = 12

// pixelFormatAliases названия форматов, которые встречаются в настройках камер
var pixelFormatAliases = map[string]entity.PixelFormat{
	"Mono8":         entity.PixelFormatMono8,
	"8-bit":         entity.PixelFormatMono8,
	"Mono12":        entity.PixelFormatMono12,
	"12-bit":        entity.PixelFormatMono12,
	"Mono12Packed":  entity.PixelFormatMono12Packed,
	"12-bit packed": entity.PixelFormatMono12Packed,
}

// ParsePixelFormat переводит название формата в PixelFormat.
func ParsePixelFormat(name string) (entity.PixelFormat, error) {
	f, ok := pixelFormatAliases[name]
	if !ok {
		return "", errors.Wrapf(entity.ErrUnsupportedPixelFormat, "%q", name)
	}
	return f, nil
}

// DecodeFrame собирает кадр из сырого вектора пикселей.
func DecodeFrame(raw entity.RawFrame) (entity.Frame, error) {
	if raw.Width <= 0 || raw.Height <= 0 {
		return entity.Frame{}, errors.Wrapf(entity.ErrMalformedFrame, "shape %dx%d", raw.Width, raw.Height)
	}
	format, err := ParsePixelFormat(string(raw.PixelFormat))
	if err != nil {
		return entity.Frame{}, err
	}

	pixels := raw.Width * raw.Height
	rect := image.Rect(0, 0, raw.Width, raw.Height)

	switch format {
	case entity.PixelFormatMono8:
		if len(raw.Data) != pixels {
			return entity.Frame{}, errors.Wrapf(entity.ErrMalformedFrame,
				"mono8 %dx%d needs %d bytes, got %d", raw.Width, raw.Height, pixels, len(raw.Data))
		}
		img := image.NewGray(rect)
		copy(img.Pix, raw.Data)
		return entity.NewFrame(img, 8)

	case entity.PixelFormatMono12:
		if len(raw.Data) != pixels*2 {
			return entity.Frame{}, errors.Wrapf(entity.ErrMalformedFrame,
				"mono12 %dx%d needs %d bytes, got %d", raw.Width, raw.Height, pixels*2, len(raw.Data))
		}
		img := image.NewGray16(rect)
		// image.Gray16 хранит big-endian
		for i := 0; i < pixels; i++ {
			v := binary.LittleEndian.Uint16(raw.Data[2*i:])
			binary.BigEndian.PutUint16(img.Pix[2*i:], v)
		}
		return entity.NewFrame(img, mono12BitDepth)

	default:
		return entity.Frame{}, errors.Wrapf(entity.ErrUnsupportedPixelFormat, "%s is not implemented", format)
	}
}

// Decoder реализует port.FrameDecoder поверх DecodeFrame
type Decoder struct{}

// Decode см. DecodeFrame
func (Decoder) Decode(raw entity.RawFrame) (entity.Frame, error) {
	return DecodeFrame(raw)
}

var _ port.FrameDecoder = Decoder{}
