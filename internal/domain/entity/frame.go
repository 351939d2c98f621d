package entity

import (
	"image"
	"time"

	"github.com/pkg/errors"
)

// PixelFormat формат пикселей, который присылает камера
type PixelFormat string

const (
	PixelFormatMono8        PixelFormat = "Mono8"        // 8 бит на пиксель
	PixelFormatMono12       PixelFormat = "Mono12"       // 12 бит в uint16 (little-endian)
	PixelFormatMono12Packed PixelFormat = "Mono12Packed" // 12 бит, два пикселя в трёх байтах
)

var (
	// ErrUnsupportedPixelFormat кадр в формате, который мы не умеем разбирать.
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")
	// ErrMalformedFrame размер данных не совпадает с заявленной геометрией.
	ErrMalformedFrame = errors.New("malformed frame")
)

// RawFrame кадр в том виде, в каком его отдаёт поставщик кадров
type RawFrame struct {
	LineID      string
	FrameID     int64
	Width       int
	Height      int
	PixelFormat PixelFormat
	Data        []byte
	Timestamp   time.Time
}

// Frame кадр в оттенках серого. Image — *image.Gray или *image.Gray16.
// Кадр не изменяется этапами обработки; обрезка возвращает вид на те же пиксели.
type Frame struct {
	Image    image.Image
	BitDepth int
}

// NewFrame проверяет тип изображения и собирает кадр.
func NewFrame(img image.Image, bitDepth int) (Frame, error) {
	switch img.(type) {
	case *image.Gray:
		if bitDepth != 8 {
			return Frame{}, errors.Wrapf(ErrMalformedFrame, "8-bit image with bit depth %d", bitDepth)
		}
	case *image.Gray16:
		if bitDepth <= 8 || bitDepth > 16 {
			return Frame{}, errors.Wrapf(ErrMalformedFrame, "16-bit image with bit depth %d", bitDepth)
		}
	default:
		return Frame{}, errors.Wrapf(ErrMalformedFrame, "frame must be grayscale, got %T", img)
	}
	return Frame{Image: img, BitDepth: bitDepth}, nil
}

// Width ширина кадра в пикселях
func (f Frame) Width() int { return f.Image.Bounds().Dx() }

// Height высота кадра в пикселях
func (f Frame) Height() int { return f.Image.Bounds().Dy() }

// CropColumns возвращает столбцы [x0, x1) на всю высоту.
// Границы приводятся к кадру, пустой диапазон даёт кадр нулевой ширины.
func (f Frame) CropColumns(x0, x1 int) Frame {
	w := f.Width()
	x0 = clamp(x0, 0, w)
	x1 = clamp(x1, x0, w)

	b := f.Image.Bounds()
	rect := image.Rect(b.Min.X+x0, b.Min.Y, b.Min.X+x1, b.Max.Y)

	var sub image.Image
	switch img := f.Image.(type) {
	case *image.Gray:
		sub = img.SubImage(rect)
	case *image.Gray16:
		sub = img.SubImage(rect)
	}
	return Frame{Image: sub, BitDepth: f.BitDepth}
}

// Gray8Bytes отдаёт пиксели построчно без выравнивания, приводя глубину к 8 битам.
func (f Frame) Gray8Bytes() []byte {
	b := f.Image.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h)

	switch img := f.Image.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			start := img.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out[y*w:(y+1)*w], img.Pix[start:start+w])
		}
	case *image.Gray16:
		shift := uint(f.BitDepth - 8)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := img.Gray16At(b.Min.X+x, b.Min.Y+y).Y
				if f.BitDepth < 16 {
					v &= 1<<uint(f.BitDepth) - 1
				}
				out[y*w+x] = uint8(v >> shift)
			}
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
