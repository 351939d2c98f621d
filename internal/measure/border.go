package measure

import (
	"github.com/pkg/errors"

	"coil-vision/internal/domain/entity"
)

// BorderParams настройки поиска границ по столбцам
type BorderParams struct {
	IgnoreMarginPx int // столбцы, отбрасываемые с каждой стороны кадра
	MinConsecutive int // минимальная длина серии подходящих столбцов
}

// BorderScanner ищет левую и правую границу рулона по плотности пикселей границы в столбцах.
type BorderScanner struct {
	params BorderParams
}

// NewBorderScanner создаёт сканер границ.
func NewBorderScanner(params BorderParams) (*BorderScanner, error) {
	if params.IgnoreMarginPx < 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "ignore margin %d", params.IgnoreMarginPx)
	}
	if params.MinConsecutive < 1 {
		return nil, errors.Wrapf(ErrInvalidParameter, "min consecutive columns %d", params.MinConsecutive)
	}
	return &BorderScanner{params: params}, nil
}

// Margin число игнорируемых столбцов с каждой стороны.
func (s *BorderScanner) Margin() int { return s.params.IgnoreMarginPx }

// Scan считает долю пикселей границы в столбцах внутри полосы строк
// [startPct, endPct] и возвращает первый и последний столбец, вокруг которого
// не меньше MinConsecutive подряд идущих столбцов с долей выше threshold.
// Если таких столбцов нет, возвращается весь просматриваемый диапазон.
func (s *BorderScanner) Scan(raster *entity.EdgeRaster, threshold, startPct, endPct float64) (entity.BorderResult, error) {
	if err := raster.Validate(); err != nil {
		return entity.BorderResult{}, errors.Wrap(ErrMalformedRaster, err.Error())
	}
	if startPct < 0 || endPct > 1 || startPct > endPct {
		return entity.BorderResult{}, errors.Wrapf(ErrInvalidParameter, "row band [%v, %v]", startPct, endPct)
	}

	margin := s.params.IgnoreMarginPx
	cols := raster.Width - 2*margin
	if cols <= 0 {
		return entity.BorderResult{}, errors.Wrapf(ErrMalformedRaster,
			"raster width %d leaves no columns after ignoring %d px on each side", raster.Width, margin)
	}

	startRow := int(float64(raster.Height) * startPct)
	endRow := int(float64(raster.Height) * endPct)
	profile := columnDensity(raster, margin, cols, startRow, endRow)

	valid := make([]bool, cols)
	for i, v := range profile {
		valid[i] = v > threshold
	}

	res := entity.BorderResult{
		DensityProfile: profile,
		FirstIndex:     margin,
		LastIndex:      raster.Width - margin - 1,
	}
	if first, last, ok := runBounds(valid, s.params.MinConsecutive); ok {
		res.FirstIndex = first + margin
		res.LastIndex = last + margin
		res.Found = true
	}
	res.CenterIndex = (res.FirstIndex + res.LastIndex) / 2
	return res, nil
}

// columnDensity доля ненулевых пикселей в каждом столбце [margin, margin+cols) для строк [startRow, endRow).
func columnDensity(raster *entity.EdgeRaster, margin, cols, startRow, endRow int) []float64 {
	profile := make([]float64, cols)
	rows := endRow - startRow
	if rows <= 0 {
		return profile
	}

	parallelRanges(cols, func(lo, hi int) {
		counts := make([]int, hi-lo)
		for y := startRow; y < endRow; y++ {
			row := raster.Row(y)[margin+lo : margin+hi]
			for i, px := range row {
				if px != 0 {
					counts[i]++
				}
			}
		}
		for i, c := range counts {
			profile[lo+i] = float64(c) / float64(rows)
		}
	})
	return profile
}

// runBounds отмечает столбцы, у которых окно длины minRun (центрированное, как
// свёртка в режиме same) целиком состоит из подходящих столбцов, и возвращает
// первый и последний такой столбец.
func runBounds(valid []bool, minRun int) (first, last int, ok bool) {
	n := len(valid)
	prefix := make([]int, n+1)
	for i, v := range valid {
		prefix[i+1] = prefix[i]
		if v {
			prefix[i+1]++
		}
	}

	half := (minRun - 1) / 2
	first, last = -1, -1
	for i := 0; i < n; i++ {
		hi := i + half
		lo := hi - (minRun - 1)
		if lo < 0 || hi >= n {
			continue
		}
		if prefix[hi+1]-prefix[lo] < minRun {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	return first, last, first >= 0
}
