package vision

import "github.com/pkg/errors"

// EdgeParams настройки построения карты границ
type EdgeParams struct {
	BlurKernelWidth  int // нечётные
	BlurKernelHeight int
	CannyLow         float32
	CannyHigh        float32
	ContourThickness int
}

// DefaultEdgeParams размытие 1x99, Canny 13/35, контур толщиной 3
func DefaultEdgeParams() EdgeParams {
	return EdgeParams{
		BlurKernelWidth:  1,
		BlurKernelHeight: 99,
		CannyLow:         13,
		CannyHigh:        35,
		ContourThickness: 3,
	}
}

func (p EdgeParams) validate() error {
	if p.BlurKernelWidth <= 0 || p.BlurKernelWidth%2 == 0 ||
		p.BlurKernelHeight <= 0 || p.BlurKernelHeight%2 == 0 {
		return errors.Errorf("blur kernel %dx%d must be odd and positive", p.BlurKernelWidth, p.BlurKernelHeight)
	}
	if p.CannyLow < 0 || p.CannyHigh < p.CannyLow {
		return errors.Errorf("canny thresholds %v/%v", p.CannyLow, p.CannyHigh)
	}
	if p.ContourThickness <= 0 {
		return errors.Errorf("contour thickness %d", p.ContourThickness)
	}
	return nil
}

// DetectorParams фильтры контуров, которые считаются дефектами
type DetectorParams struct {
	MinAreaRatio   float64 // доля площади кадра
	MinAspectRatio float64
	MaxAspectRatio float64
	CannyLow       float32
	CannyHigh      float32
}

// DefaultDetectorParams пороги по умолчанию
func DefaultDetectorParams() DetectorParams {
	return DetectorParams{
		MinAreaRatio:   0.001,
		MinAspectRatio: 0.1,
		MaxAspectRatio: 10.0,
		CannyLow:       50,
		CannyHigh:      150,
	}
}

// OverlayParams подписи на диагностическом изображении
type OverlayParams struct {
	MMPerPixel float64
	Thickness  int
}
