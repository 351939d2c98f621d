package entity

import (
	"image"
	"math"
)

// BorderResult результат поиска границ по плотности пикселей в столбцах.
type BorderResult struct {
	DensityProfile []float64 // доля пикселей границы в каждом просмотренном столбце
	FirstIndex     int
	LastIndex      int
	CenterIndex    int
	Found          bool // false — сработал запасной диапазон
}

// CoilMeasurement итог измерения ширины рулона на одном кадре.
// WidthMM == 0 означает, что измерению доверять нельзя.
type CoilMeasurement struct {
	WidthMM       float64
	StartOffsetPx int // смещение центра в начале кадра относительно общего центра
	EndOffsetPx   int // то же для конца кадра
	CenterPx      int
}

// Rejected сообщает, что измерение отброшено.
func (m CoilMeasurement) Rejected() bool { return m.WidthMM == 0 }

// PointF точка с дробными координатами
type PointF struct {
	X float64
	Y float64
}

// IntervalMeasurement измерение ширины в одной полосе строк.
// Distance = MidPointRight.X - MidPointLeft.X и может быть отрицательным.
type IntervalMeasurement struct {
	RightEdgeStart image.Point
	RightEdgeEnd   image.Point
	LeftEdgeStart  image.Point
	LeftEdgeEnd    image.Point
	MidPointRight  PointF
	MidPointLeft   PointF
	CenterPoint    PointF
	Distance       float64
}

// Measurable сообщает, можно ли использовать измерение.
func (m IntervalMeasurement) Measurable() bool { return m.Distance > 0 }

// Scale переводит координаты в другой масштаб (например, из уменьшенной карты в полный кадр).
func (m IntervalMeasurement) Scale(factor float64) IntervalMeasurement {
	sp := func(p image.Point) image.Point {
		return image.Pt(int(float64(p.X)*factor), int(float64(p.Y)*factor))
	}
	sf := func(p PointF) PointF {
		return PointF{X: p.X * factor, Y: p.Y * factor}
	}
	out := IntervalMeasurement{
		RightEdgeStart: sp(m.RightEdgeStart),
		RightEdgeEnd:   sp(m.RightEdgeEnd),
		LeftEdgeStart:  sp(m.LeftEdgeStart),
		LeftEdgeEnd:    sp(m.LeftEdgeEnd),
		MidPointRight:  sf(m.MidPointRight),
		MidPointLeft:   sf(m.MidPointLeft),
	}
	out.Distance = out.MidPointRight.X - out.MidPointLeft.X
	out.CenterPoint = PointF{
		X: math.Floor((out.MidPointRight.X + out.MidPointLeft.X) / 2),
		Y: math.Floor((out.MidPointRight.Y + out.MidPointLeft.Y) / 2),
	}
	return out
}

// Band результат одной полосы сканирования. Полосу с Err нужно исключить.
type Band struct {
	RowOffset   int
	Measurement IntervalMeasurement
	Err         error
}
