package measure

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"coil-vision/internal/domain/entity"
)

func testCoilParams() CoilParams {
	return CoilParams{
		MMPerPixel:           1,
		BorderPx:             50,
		DensityThreshold:     0.1,
		ResizeRatio:          1,
		MinCoilWidthMM:       940,
		MaxCoilWidthMM:       1600,
		MaxRelativeDeviation: 0.10,
	}
}

func TestCoilCropMeasurer_MeasuresAndCrops(t *testing.T) {
	r := entity.NewEdgeRaster(1700, 100)
	paintEdge(r, 300, 0, 100)
	paintEdge(r, 1300, 0, 100)
	frame := blankFrame(t, 1700, 100)

	m := NewCoilCropMeasurer(&staticBuilder{raster: r}, newTestScanner(t))
	res, err := m.Measure(frame, testCoilParams(), nil)
	require.NoError(t, err)

	require.Equal(t, entity.CoilMeasurement{WidthMM: 1000, CenterPx: 800}, res.Measurement)
	require.Equal(t, 300, res.FirstIndex)
	require.Equal(t, 1300, res.LastIndex)
	require.Equal(t, 1100, res.Crop.Width())
	require.Equal(t, 100, res.Crop.Height())
	require.Same(t, r, res.Raster)
	require.False(t, res.PriorReused)
	require.False(t, res.AlternateUsed)
}

func TestCoilCropMeasurer_Offsets(t *testing.T) {
	r := entity.NewEdgeRaster(1700, 100)
	paintEdge(r, 290, 0, 10)
	paintEdge(r, 1290, 0, 10)
	paintEdge(r, 300, 10, 90)
	paintEdge(r, 1300, 10, 90)
	paintEdge(r, 310, 90, 100)
	paintEdge(r, 1310, 90, 100)

	p := testCoilParams()
	p.DensityThreshold = 0.05
	m := NewCoilCropMeasurer(&staticBuilder{raster: r}, newTestScanner(t))
	res, err := m.Measure(blankFrame(t, 1700, 100), p, nil)
	require.NoError(t, err)

	require.Equal(t, 1000.0, res.Measurement.WidthMM)
	require.Equal(t, 800, res.Measurement.CenterPx)
	require.Equal(t, -10, res.Measurement.StartOffsetPx)
	require.Equal(t, 10, res.Measurement.EndOffsetPx)
	require.Equal(t, 290, res.FirstIndex)
	require.Equal(t, 1310, res.LastIndex)
}

func TestCoilCropMeasurer_ReusesPriorOnLargeJump(t *testing.T) {
	r := entity.NewEdgeRaster(1700, 100)
	paintEdge(r, 200, 0, 100)
	paintEdge(r, 1400, 0, 100)

	m := NewCoilCropMeasurer(&staticBuilder{raster: r}, newTestScanner(t))
	prior := &entity.CoilMeasurement{WidthMM: 1000, CenterPx: 800}
	res, err := m.Measure(blankFrame(t, 1700, 100), testCoilParams(), prior)
	require.NoError(t, err)

	require.True(t, res.PriorReused)
	require.Equal(t, 1000.0, res.Measurement.WidthMM)
	require.Equal(t, 800, res.Measurement.CenterPx)
	require.Equal(t, 300, res.FirstIndex)
	require.Equal(t, 1300, res.LastIndex)
	require.Equal(t, 1100, res.Crop.Width())
}

func TestCoilCropMeasurer_KeepsSmallChange(t *testing.T) {
	r := entity.NewEdgeRaster(1700, 100)
	paintEdge(r, 275, 0, 100)
	paintEdge(r, 1325, 0, 100)

	m := NewCoilCropMeasurer(&staticBuilder{raster: r}, newTestScanner(t))
	prior := &entity.CoilMeasurement{WidthMM: 1000, CenterPx: 790}
	res, err := m.Measure(blankFrame(t, 1700, 100), testCoilParams(), prior)
	require.NoError(t, err)

	require.False(t, res.PriorReused)
	require.Equal(t, 1050.0, res.Measurement.WidthMM)
	require.Equal(t, 800, res.Measurement.CenterPx)
}

func TestCoilCropMeasurer_OutOfBoundsUsesAlternateWidth(t *testing.T) {
	r := entity.NewEdgeRaster(1700, 100)
	paintEdge(r, 300, 0, 40)
	paintEdge(r, 300, 60, 100)
	paintEdge(r, 1300, 0, 40)
	paintEdge(r, 1300, 60, 100)
	paintEdge(r, 550, 40, 60)
	paintEdge(r, 1050, 40, 60)

	m := NewCoilCropMeasurer(&staticBuilder{raster: r}, newTestScanner(t))
	res, err := m.Measure(blankFrame(t, 1700, 100), testCoilParams(), nil)
	require.NoError(t, err)

	require.True(t, res.AlternateUsed)
	require.Equal(t, 1000.0, res.Measurement.WidthMM)
	require.Equal(t, 1100, res.Crop.Width())
}

func TestCoilCropMeasurer_RejectsWhenBothWidthsOutOfBounds(t *testing.T) {
	r := entity.NewEdgeRaster(1700, 100)
	paintEdge(r, 350, 0, 40)
	paintEdge(r, 350, 60, 100)
	paintEdge(r, 1250, 0, 40)
	paintEdge(r, 1250, 60, 100)
	paintEdge(r, 550, 40, 60)
	paintEdge(r, 1050, 40, 60)
	frame := blankFrame(t, 1700, 100)

	m := NewCoilCropMeasurer(&staticBuilder{raster: r}, newTestScanner(t))
	res, err := m.Measure(frame, testCoilParams(), nil)
	require.NoError(t, err)

	require.True(t, res.Measurement.Rejected())
	require.Zero(t, res.Measurement.StartOffsetPx)
	require.Zero(t, res.Measurement.EndOffsetPx)
	require.True(t, res.Crop.Image == frame.Image)
	require.Equal(t, frame, res.Crop)
}

func TestCoilCropMeasurer_RescalesDownscaledIndices(t *testing.T) {
	r := entity.NewEdgeRaster(850, 50)
	paintEdge(r, 150, 0, 50)
	paintEdge(r, 650, 0, 50)
	builder := &staticBuilder{raster: r}

	p := testCoilParams()
	p.ResizeRatio = 0.5
	m := NewCoilCropMeasurer(builder, newTestScanner(t))
	res, err := m.Measure(blankFrame(t, 1700, 100), p, nil)
	require.NoError(t, err)

	require.Equal(t, []float64{0.5}, builder.ratios)
	require.Equal(t, 1000.0, res.Measurement.WidthMM)
	require.Equal(t, 800, res.Measurement.CenterPx)
	require.Equal(t, 300, res.FirstIndex)
	require.Equal(t, 1300, res.LastIndex)
}

func TestCoilCropMeasurer_RoundTrip(t *testing.T) {
	const center, width = 850, 1000
	r := entity.NewEdgeRaster(1700, 120)
	paintEdge(r, center-width/2, 0, 120)
	paintEdge(r, center+width/2, 0, 120)
	frame := frameFromRaster(t, r)

	p := testCoilParams()
	p.BorderPx = 200
	m := NewCoilCropMeasurer(pixelBuilder{}, newTestScanner(t))

	first, err := m.Measure(frame, p, nil)
	require.NoError(t, err)
	require.Equal(t, center, first.Measurement.CenterPx)
	require.InDelta(t, width, first.Measurement.WidthMM, 1)

	cropStart := first.FirstIndex - p.BorderPx
	second, err := m.Measure(first.Crop, p, &first.Measurement)
	require.NoError(t, err)
	require.InDelta(t, center-cropStart, second.Measurement.CenterPx, 1)
	require.InDelta(t, width, second.Measurement.WidthMM, 1)
	require.False(t, second.PriorReused)
}

type failingBuilder struct{}

func (failingBuilder) Build(entity.Frame, float64) (*entity.EdgeRaster, error) {
	return nil, errors.New("opencv unavailable")
}

func TestCoilCropMeasurer_Errors(t *testing.T) {
	frame := blankFrame(t, 1700, 100)

	m := NewCoilCropMeasurer(failingBuilder{}, newTestScanner(t))
	_, err := m.Measure(frame, testCoilParams(), nil)
	require.ErrorContains(t, err, "opencv unavailable")

	p := testCoilParams()
	p.ResizeRatio = 1.5
	_, err = m.Measure(frame, p, nil)
	require.ErrorIs(t, err, ErrInvalidParameter)

	p = testCoilParams()
	p.MMPerPixel = 0
	_, err = m.Measure(frame, p, nil)
	require.ErrorIs(t, err, ErrInvalidParameter)
}
