//go:build gocv
// +build gocv

package vision

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"coil-vision/internal/domain/entity"
	"coil-vision/internal/domain/port"
)

// EdgeBuilder строит карту границ рулона: уменьшение, размытие по вертикали,
// Canny и заливка внешних контуров на пустом холсте.
type EdgeBuilder struct {
	params EdgeParams
}

// NewEdgeBuilder создаёт построитель карты границ.
func NewEdgeBuilder(params EdgeParams) (*EdgeBuilder, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &EdgeBuilder{params: params}, nil
}

// Build возвращает карту границ размером кадра, уменьшенного в resizeRatio раз.
func (b *EdgeBuilder) Build(frame entity.Frame, resizeRatio float64) (*entity.EdgeRaster, error) {
	if resizeRatio <= 0 || resizeRatio > 1 {
		return nil, errors.Errorf("resize ratio %v out of (0, 1]", resizeRatio)
	}

	mat, err := frameToMat(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	small := mat
	if resizeRatio < 1 {
		w := int(float64(mat.Cols()) * resizeRatio)
		h := int(float64(mat.Rows()) * resizeRatio)
		if w == 0 || h == 0 {
			return nil, errors.Errorf("frame %dx%d vanishes at ratio %v", mat.Cols(), mat.Rows(), resizeRatio)
		}
		small = gocv.NewMat()
		defer small.Close()
		gocv.Resize(mat, &small, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	}

	blur := gocv.NewMat()
	defer blur.Close()
	kernel := image.Pt(b.params.BlurKernelWidth, b.params.BlurKernelHeight)
	gocv.GaussianBlur(small, &blur, kernel, 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blur, &edges, b.params.CannyLow, b.params.CannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), small.Rows(), small.Cols(), gocv.MatTypeCV8U)
	defer canvas.Close()
	if contours.Size() > 0 {
		gocv.DrawContours(&canvas, contours, -1, color.RGBA{R: 255, G: 255, B: 255, A: 255}, b.params.ContourThickness)
	}

	raster := &entity.EdgeRaster{
		Width:  canvas.Cols(),
		Height: canvas.Rows(),
		Pix:    canvas.ToBytes(),
	}
	if err := raster.Validate(); err != nil {
		return nil, errors.Wrap(err, "edge raster from opencv")
	}
	return raster, nil
}

var _ port.EdgeRasterBuilder = (*EdgeBuilder)(nil)
