package measure

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/stat"

	"coil-vision/internal/domain/entity"
)

// edgeShape форма края внутри полосы
type edgeShape int

const (
	edgeStraight edgeShape = iota // все точки в одном столбце
	edgeSloped                    // наклонный или зашумлённый край
)

// scanDirection откуда искать пиксель края в строке
type scanDirection int

const (
	fromLeft scanDirection = iota
	fromRight
)

// IntervalScanner измеряет ширину рулона по полосам строк.
type IntervalScanner struct{}

// NewIntervalScanner создаёт сканер полос.
func NewIntervalScanner() *IntervalScanner {
	return &IntervalScanner{}
}

// Scan делит карту на полосы высотой samplingIntervalPx с промежутком gapPx,
// начиная со строки 0. Неполная последняя полоса отбрасывается.
// Полосы возвращаются по возрастанию строки; полосу с Err нужно исключить.
func (s *IntervalScanner) Scan(raster *entity.EdgeRaster, samplingIntervalPx, gapPx int) ([]entity.Band, error) {
	if err := raster.Validate(); err != nil {
		return nil, errors.Wrap(ErrMalformedRaster, err.Error())
	}
	if samplingIntervalPx <= 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "sampling interval %d px", samplingIntervalPx)
	}
	if gapPx < 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "gap %d px", gapPx)
	}

	var starts []int
	for y := 0; y+samplingIntervalPx <= raster.Height; y += samplingIntervalPx + gapPx {
		starts = append(starts, y)
	}

	bands := make([]entity.Band, len(starts))
	parallelRanges(len(starts), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			start := starts[i]
			m, err := measureBand(raster, start, start+samplingIntervalPx)
			if err != nil {
				err = errors.Wrapf(err, "band at row %d", start)
			}
			bands[i] = entity.Band{RowOffset: start, Measurement: m, Err: err}
		}
	})
	return bands, nil
}

// BandErrors собирает ошибки всех полос в одну.
func BandErrors(bands []entity.Band) error {
	var err error
	for _, b := range bands {
		err = multierr.Append(err, b.Err)
	}
	return err
}

func measureBand(raster *entity.EdgeRaster, start, end int) (entity.IntervalMeasurement, error) {
	right := collectEdgePoints(raster, start, end, fromRight)
	left := collectEdgePoints(raster, start, end, fromLeft)

	midRight, err := selectMidpoint(right)
	if err != nil {
		return entity.IntervalMeasurement{}, errors.Wrap(err, "right edge")
	}
	midLeft, err := selectMidpoint(left)
	if err != nil {
		return entity.IntervalMeasurement{}, errors.Wrap(err, "left edge")
	}

	return entity.IntervalMeasurement{
		RightEdgeStart: right[0],
		RightEdgeEnd:   right[len(right)-1],
		LeftEdgeStart:  left[0],
		LeftEdgeEnd:    left[len(left)-1],
		MidPointRight:  midRight,
		MidPointLeft:   midLeft,
		CenterPoint: entity.PointF{
			X: math.Floor((midRight.X + midLeft.X) / 2),
			Y: math.Floor((midRight.Y + midLeft.Y) / 2),
		},
		Distance: midRight.X - midLeft.X,
	}, nil
}

// collectEdgePoints по одной точке края на строку; строки без границы пропускаются.
func collectEdgePoints(raster *entity.EdgeRaster, start, end int, dir scanDirection) []image.Point {
	points := make([]image.Point, 0, end-start)
	for y := start; y < end; y++ {
		if x, ok := edgeInRow(raster.Row(y), dir); ok {
			points = append(points, image.Pt(x, y))
		}
	}
	return points
}

func edgeInRow(row []uint8, dir scanDirection) (int, bool) {
	if dir == fromRight {
		for x := len(row) - 1; x >= 0; x-- {
			if row[x] != 0 {
				return x, true
			}
		}
		return 0, false
	}
	for x, px := range row {
		if px != 0 {
			return x, true
		}
	}
	return 0, false
}

func classifyEdge(points []image.Point) edgeShape {
	if len(points) == 0 {
		return edgeSloped
	}
	for _, p := range points[1:] {
		if p.X != points[0].X {
			return edgeSloped
		}
	}
	return edgeStraight
}

// selectMidpoint середина края: для вертикального края — столбец и средняя строка,
// иначе точка регрессии row = a + b*column в среднем столбце.
func selectMidpoint(points []image.Point) (entity.PointF, error) {
	switch classifyEdge(points) {
	case edgeStraight:
		return straightMidpoint(points), nil
	default:
		return regressionMidpoint(points)
	}
}

func straightMidpoint(points []image.Point) entity.PointF {
	var sum float64
	for _, p := range points {
		sum += float64(p.Y)
	}
	return entity.PointF{X: float64(points[0].X), Y: sum / float64(len(points))}
}

func regressionMidpoint(points []image.Point) (entity.PointF, error) {
	if len(points) < 2 {
		return entity.PointF{}, errors.Wrapf(ErrInsufficientEdgePoints, "got %d", len(points))
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.X)
		ys[i] = float64(p.Y)
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	meanX := stat.Mean(xs, nil)
	return entity.PointF{X: meanX, Y: alpha + beta*meanX}, nil
}
