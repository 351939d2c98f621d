package measure

import (
	"math"

	"github.com/pkg/errors"

	"coil-vision/internal/domain/entity"
	"coil-vision/internal/domain/port"
)

// Полосы строк (доли высоты), по которым ищутся границы.
var (
	startRows   = [2]float64{0, 0.1}
	fullRows    = [2]float64{0, 1}
	endRows     = [2]float64{0.9, 1}
	measureRows = [2]float64{0.45, 0.55}
)

// узкие полосы сканируются с утроенным порогом плотности
const narrowBandThresholdFactor = 3

// CoilParams параметры измерения одного кадра
type CoilParams struct {
	MMPerPixel           float64
	BorderPx             int     // запас по ширине вокруг рулона при обрезке
	DensityThreshold     float64 // порог доли пикселей границы в столбце
	ResizeRatio          float64 // (0, 1], уменьшение кадра перед поиском границ
	MinCoilWidthMM       float64
	MaxCoilWidthMM       float64
	MaxRelativeDeviation float64 // допустимый скачок ширины относительно прошлого кадра
}

func (p CoilParams) validate() error {
	switch {
	case p.MMPerPixel <= 0:
		return errors.Wrapf(ErrInvalidParameter, "mm per pixel %v", p.MMPerPixel)
	case p.ResizeRatio <= 0 || p.ResizeRatio > 1:
		return errors.Wrapf(ErrInvalidParameter, "resize ratio %v", p.ResizeRatio)
	case p.BorderPx < 0:
		return errors.Wrapf(ErrInvalidParameter, "border %d px", p.BorderPx)
	case p.MinCoilWidthMM > p.MaxCoilWidthMM:
		return errors.Wrapf(ErrInvalidParameter, "coil width bounds [%v, %v]", p.MinCoilWidthMM, p.MaxCoilWidthMM)
	case p.MaxRelativeDeviation < 0:
		return errors.Wrapf(ErrInvalidParameter, "max relative deviation %v", p.MaxRelativeDeviation)
	}
	return nil
}

func (p CoilParams) inBounds(widthMM float64) bool {
	return widthMM >= p.MinCoilWidthMM && widthMM <= p.MaxCoilWidthMM
}

// CoilResult результат измерения кадра
type CoilResult struct {
	Crop        entity.Frame
	Measurement entity.CoilMeasurement
	Raster      *entity.EdgeRaster // карта границ для диагностики, в уменьшенном масштабе

	FirstIndex    int  // левая граница обрезки без запаса, полный масштаб
	LastIndex     int  // правая граница обрезки без запаса, полный масштаб
	PriorReused   bool // измерение заменено предыдущим из-за скачка
	AlternateUsed bool // ширина взята по полной высоте кадра
}

// CoilCropMeasurer измеряет ширину рулона и обрезает кадр по его краям.
type CoilCropMeasurer struct {
	builder port.EdgeRasterBuilder
	scanner *BorderScanner
}

// NewCoilCropMeasurer создаёт измеритель поверх построителя карты границ.
func NewCoilCropMeasurer(builder port.EdgeRasterBuilder, scanner *BorderScanner) *CoilCropMeasurer {
	return &CoilCropMeasurer{builder: builder, scanner: scanner}
}

// Measure строит карту границ кадра, находит края рулона и переводит ширину в миллиметры.
//
// Если ширина отличается от prior больше чем на MaxRelativeDeviation, используется prior.
// Если ширина вне физических пределов, пробуется ширина по полной высоте; если и она
// вне пределов, возвращается WidthMM = 0 и необрезанный кадр.
func (m *CoilCropMeasurer) Measure(frame entity.Frame, p CoilParams, prior *entity.CoilMeasurement) (CoilResult, error) {
	if err := p.validate(); err != nil {
		return CoilResult{}, err
	}

	raster, err := m.builder.Build(frame, p.ResizeRatio)
	if err != nil {
		return CoilResult{}, errors.Wrap(err, "build edge raster")
	}

	narrow := p.DensityThreshold * narrowBandThresholdFactor
	start, err := m.scanner.Scan(raster, narrow, startRows[0], startRows[1])
	if err != nil {
		return CoilResult{}, errors.Wrap(err, "scan start band")
	}
	full, err := m.scanner.Scan(raster, p.DensityThreshold, fullRows[0], fullRows[1])
	if err != nil {
		return CoilResult{}, errors.Wrap(err, "scan full height")
	}
	end, err := m.scanner.Scan(raster, narrow, endRows[0], endRows[1])
	if err != nil {
		return CoilResult{}, errors.Wrap(err, "scan end band")
	}
	meas, err := m.scanner.Scan(raster, narrow, measureRows[0], measureRows[1])
	if err != nil {
		return CoilResult{}, errors.Wrap(err, "scan measure band")
	}

	up := func(i int) int { return int(float64(i) / p.ResizeRatio) }

	startCenter := up(start.CenterIndex)
	endCenter := up(end.CenterIndex)
	center := up(full.CenterIndex)
	first, last := up(full.FirstIndex), up(full.LastIndex)

	widthMM := float64(up(meas.LastIndex)-up(meas.FirstIndex)) * p.MMPerPixel

	res := CoilResult{Raster: raster}

	// Скачок ширины считается ошибкой детекции. При смене рулона prior обнуляется
	// снаружи, поэтому новый рулон другой ширины сюда не попадает.
	if prior != nil && prior.WidthMM > 0 &&
		math.Abs(prior.WidthMM-widthMM)/prior.WidthMM > p.MaxRelativeDeviation {
		widthMM = prior.WidthMM
		center = prior.CenterPx
		halfPx := widthMM / 2 / p.MMPerPixel
		first = int(math.Round(float64(center) - halfPx))
		last = int(math.Round(float64(center) + halfPx))
		res.PriorReused = true
	}

	startOffset := startCenter - center
	endOffset := endCenter - center
	crop := frame.CropColumns(first-p.BorderPx, last+p.BorderPx)

	if !p.inBounds(widthMM) {
		alt := float64(last-first) * p.MMPerPixel
		if p.inBounds(alt) {
			widthMM = alt
			res.AlternateUsed = true
		} else {
			widthMM = 0
			startOffset, endOffset = 0, 0
			crop = frame
		}
	}

	res.Crop = crop
	res.FirstIndex, res.LastIndex = first, last
	res.Measurement = entity.CoilMeasurement{
		WidthMM:       widthMM,
		StartOffsetPx: startOffset,
		EndOffsetPx:   endOffset,
		CenterPx:      center,
	}
	return res, nil
}
