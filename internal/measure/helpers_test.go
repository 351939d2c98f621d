package measure

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	"coil-vision/internal/domain/entity"
)

func setEdge(r *entity.EdgeRaster, x, y int) {
	r.Pix[y*r.Width+x] = 255
}

// paintColumns помечает столбцы [x0, x1) в строках [y0, y1).
func paintColumns(r *entity.EdgeRaster, x0, x1, y0, y1 int) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			setEdge(r, x, y)
		}
	}
}

// paintEdge рисует вертикальную полосу шириной 5 с центром в столбце x.
func paintEdge(r *entity.EdgeRaster, x, y0, y1 int) {
	paintColumns(r, x-2, x+3, y0, y1)
}

// staticBuilder всегда возвращает заранее подготовленную карту.
type staticBuilder struct {
	raster *entity.EdgeRaster
	ratios []float64
}

func (b *staticBuilder) Build(_ entity.Frame, ratio float64) (*entity.EdgeRaster, error) {
	b.ratios = append(b.ratios, ratio)
	return b.raster, nil
}

// pixelBuilder считает границей каждый ненулевой пиксель кадра (без уменьшения).
type pixelBuilder struct{}

func (pixelBuilder) Build(f entity.Frame, _ float64) (*entity.EdgeRaster, error) {
	return &entity.EdgeRaster{Width: f.Width(), Height: f.Height(), Pix: f.Gray8Bytes()}, nil
}

func blankFrame(t *testing.T, w, h int) entity.Frame {
	t.Helper()
	f, err := entity.NewFrame(image.NewGray(image.Rect(0, 0, w, h)), 8)
	require.NoError(t, err)
	return f
}

// frameFromRaster кадр, пиксели которого повторяют карту границ.
func frameFromRaster(t *testing.T, r *entity.EdgeRaster) entity.Frame {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	copy(img.Pix, r.Pix)
	f, err := entity.NewFrame(img, 8)
	require.NoError(t, err)
	return f
}

func newTestScanner(t *testing.T) *BorderScanner {
	t.Helper()
	s, err := NewBorderScanner(BorderParams{IgnoreMarginPx: 140, MinConsecutive: 5})
	require.NoError(t, err)
	return s
}
