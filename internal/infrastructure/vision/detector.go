//go:build gocv
// +build gocv

package vision

import (
	"context"
	"image"

	"gocv.io/x/gocv"

	"coil-vision/internal/domain/entity"
	"coil-vision/internal/domain/port"
)

const defectName = "surface_defect"

// ContourDetector ищет дефекты поверхности как внешние контуры Canny.
// Уверенность — доля пикселей границы внутри рамки контура.
type ContourDetector struct {
	params DetectorParams
}

// NewContourDetector создаёт детектор с заданными фильтрами.
func NewContourDetector(params DetectorParams) *ContourDetector {
	return &ContourDetector{params: params}
}

// Detect возвращает дефекты с уверенностью не ниже confidence.
func (d *ContourDetector) Detect(ctx context.Context, frame entity.Frame, confidence float64) ([]entity.Defect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := frameToMat(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(mat, &blur, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blur, &edges, d.params.CannyLow, d.params.CannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	minArea := int(float64(mat.Cols()*mat.Rows()) * d.params.MinAreaRatio)
	defects := make([]entity.Defect, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		rect := gocv.BoundingRect(contours.At(i))
		area := rect.Dx() * rect.Dy()
		if area == 0 || area < minArea {
			continue
		}
		aspect := float64(rect.Dx()) / float64(rect.Dy())
		if aspect < d.params.MinAspectRatio || aspect > d.params.MaxAspectRatio {
			continue
		}

		region := edges.Region(rect)
		score := float64(gocv.CountNonZero(region)) / float64(area)
		region.Close()
		if score < confidence {
			continue
		}

		defects = append(defects, entity.Defect{
			Name:       defectName,
			X:          rect.Min.X,
			Y:          rect.Min.Y,
			Width:      rect.Dx(),
			Height:     rect.Dy(),
			Confidence: score,
		})
	}
	return defects, nil
}

var _ port.DefectDetector = (*ContourDetector)(nil)
