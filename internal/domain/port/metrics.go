package port

import "time"

// Metrics счётчики и датчики конвейера кадров
type Metrics interface {
	FramesLost(n int64)
	FrameDropped(reason string)
	LoopDuration(d time.Duration)
	CropWidth(line string, px int)
	CoilWidth(line string, mm float64)
	MeasurementRejected(line string)
}
