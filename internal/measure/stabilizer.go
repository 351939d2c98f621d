package measure

import (
	"math"

	"coil-vision/internal/domain/entity"
)

// StabilizerParams пороги, при превышении которых окно обрезки сдвигается
type StabilizerParams struct {
	MaxCenterDeviationPx int
	MaxWidthDeviationPx  int
	SafetyMarginPx       int
}

// Stabilize обновляет опорный центр и ширину по измерению полосы и обрезает кадр
// окном вокруг опорного центра. Центр сдвигается на полпути к новому значению,
// ширина принимается сразу.
func Stabilize(frame entity.Frame, m entity.IntervalMeasurement, state entity.StabilizerState, p StabilizerParams) (entity.Frame, entity.StabilizerState) {
	currentWidth := int(math.Round(m.Distance)) + p.SafetyMarginPx
	currentCenter := int(m.CenterPoint.X)

	if abs(currentCenter-state.ReferenceCenter) > p.MaxCenterDeviationPx {
		state.ReferenceCenter = (state.ReferenceCenter + currentCenter) / 2
	}
	if abs(currentWidth-state.LargestWidth) > p.MaxWidthDeviationPx {
		state.LargestWidth = currentWidth
	}

	start, end := CropWindow(frame.Width(), state)
	return frame.CropColumns(start, end), state
}

// CropWindow окно [start, end) вокруг опорного центра, ограниченное кадром.
func CropWindow(frameWidth int, state entity.StabilizerState) (start, end int) {
	half := state.LargestWidth / 2
	start = max(0, state.ReferenceCenter-half)
	end = min(frameWidth, state.ReferenceCenter+half)
	start = min(start, frameWidth)
	end = max(end, start)
	return start, end
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
