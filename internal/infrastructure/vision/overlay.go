//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"coil-vision/internal/domain/entity"
)

var (
	edgeColor  = color.RGBA{G: 255, A: 255}
	widthColor = color.RGBA{R: 255, A: 255}
)

// RenderOverlay рисует края и линию ширины каждой измеримой полосы поверх кадра.
// Координаты полос — в масштабе кадра.
func RenderOverlay(frame entity.Frame, bands []entity.Band, params OverlayParams) (image.Image, error) {
	gray, err := frameToMat(frame)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	canvas := gocv.NewMat()
	defer canvas.Close()
	gocv.CvtColor(gray, &canvas, gocv.ColorGrayToBGR)

	thickness := params.Thickness
	if thickness <= 0 {
		thickness = 2
	}

	for _, b := range bands {
		if b.Err != nil || !b.Measurement.Measurable() {
			continue
		}
		m := b.Measurement
		gocv.Line(&canvas, m.RightEdgeStart, m.RightEdgeEnd, edgeColor, thickness)
		gocv.Line(&canvas, m.LeftEdgeStart, m.LeftEdgeEnd, edgeColor, thickness)

		left := image.Pt(int(m.MidPointLeft.X), int(m.MidPointLeft.Y))
		right := image.Pt(int(m.MidPointRight.X), int(m.MidPointRight.Y))
		gocv.Line(&canvas, left, right, widthColor, thickness)

		label := fmt.Sprintf("%.1f mm", m.Distance*params.MMPerPixel)
		gocv.PutText(&canvas, label, image.Pt(int(m.CenterPoint.X), int(m.CenterPoint.Y)-5),
			gocv.FontHersheyPlain, 2, widthColor, thickness)
	}

	img, err := canvas.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "overlay to image")
	}
	return img, nil
}
