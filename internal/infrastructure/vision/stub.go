//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"
	"image"

	"coil-vision/internal/domain/entity"
	"coil-vision/internal/domain/port"
)

var errNoOpenCV = errors.New("gocv build tag is not enabled")

// EdgeBuilder заглушка без OpenCV
type EdgeBuilder struct {
	params EdgeParams
}

// NewEdgeBuilder проверяет параметры и создаёт заглушку.
func NewEdgeBuilder(params EdgeParams) (*EdgeBuilder, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &EdgeBuilder{params: params}, nil
}

// Build возвращает ошибку, если сборка без тега gocv.
func (b *EdgeBuilder) Build(frame entity.Frame, resizeRatio float64) (*entity.EdgeRaster, error) {
	return nil, errNoOpenCV
}

// ContourDetector заглушка без OpenCV
type ContourDetector struct {
	params DetectorParams
}

// NewContourDetector создаёт детектор-заглушку.
func NewContourDetector(params DetectorParams) *ContourDetector {
	return &ContourDetector{params: params}
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *ContourDetector) Detect(ctx context.Context, frame entity.Frame, confidence float64) ([]entity.Defect, error) {
	return nil, errNoOpenCV
}

// RenderOverlay возвращает ошибку, если сборка без тега gocv.
func RenderOverlay(frame entity.Frame, bands []entity.Band, params OverlayParams) (image.Image, error) {
	return nil, errNoOpenCV
}

var (
	_ port.EdgeRasterBuilder = (*EdgeBuilder)(nil)
	_ port.DefectDetector    = (*ContourDetector)(nil)
)
