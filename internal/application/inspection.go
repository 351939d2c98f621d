package app

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"coil-vision/internal/domain/entity"
	"coil-vision/internal/domain/port"
	"coil-vision/internal/measure"
)

// Причины отброшенного кадра для метрик
const (
	dropDecode  = "decode"
	dropState   = "state"
	dropMeasure = "measure"
)

// Параметры записи снимка в таблицу picture
const (
	pictureType               = 1
	pictureSystemID           = 1
	pictureCompressionQuality = 95
	pictureBrightnessMax      = 255
)

// InspectionParams настройки конвейера кадра
type InspectionParams struct {
	Coil               measure.CoilParams
	SamplingIntervalPx int // высота полосы на карте границ
	GapPx              int
	Stabilizer         measure.StabilizerParams
	Confidence         float64
	MinDefectsToSave   int // 0 — кадры не сохраняются
}

// InspectionDeps зависимости сервиса. Detector, Store, Records, Uploads и Metrics необязательны.
type InspectionDeps struct {
	Lines     *LineService
	Decoder   port.FrameDecoder
	Measurer  *measure.CoilCropMeasurer
	Intervals *measure.IntervalScanner
	Detector  port.DefectDetector
	Store     port.ImageStore
	Records   port.RecordRepository
	Uploads   *UploadService
	Metrics   port.Metrics
	Log       *zap.Logger
}

// FrameResult итог обработки одного кадра
type FrameResult struct {
	LineID      string
	FrameID     int64
	Crop        entity.Frame
	Measurement entity.CoilMeasurement
	Bands       []entity.Band // в масштабе кадра
	Stabilized  bool          // кадр обрезан стабилизатором, а не по краям рулона
	FramesLost  int64
	Defects     []entity.Defect
	SavedPath   string
	Superseded  bool // смена рулона во время обработки, состояние кадра не сохранено
}

// InspectionService обрабатывает поток кадров линии: измерение, обрезка, поиск дефектов.
type InspectionService struct {
	deps   InspectionDeps
	params InspectionParams
	log    *zap.Logger
}

// NewInspectionService создаёт сервис, который ведёт конвейер кадров.
func NewInspectionService(deps InspectionDeps, params InspectionParams) (*InspectionService, error) {
	if deps.Lines == nil || deps.Decoder == nil || deps.Measurer == nil || deps.Intervals == nil {
		return nil, errors.New("inspection service needs lines, decoder, measurer and interval scanner")
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &InspectionService{deps: deps, params: params, log: deps.Log}, nil
}

// ProcessFrame проводит кадр через конвейер. Ошибка означает, что кадр отброшен.
func (s *InspectionService) ProcessFrame(ctx context.Context, raw entity.RawFrame) (*FrameResult, error) {
	started := time.Now()
	defer func() { s.deps.Metrics.LoopDuration(time.Since(started)) }()

	frame, err := s.deps.Decoder.Decode(raw)
	if err != nil {
		return nil, s.drop(dropDecode, err)
	}

	state, err := s.deps.Lines.Get(ctx, raw.LineID)
	if err != nil {
		return nil, s.drop(dropState, err)
	}

	log := s.log.With(zap.String("line", raw.LineID), zap.Int64("frame", raw.FrameID))
	res := &FrameResult{LineID: raw.LineID, FrameID: raw.FrameID}

	if lost := state.FramesLost(raw.FrameID); lost > 0 {
		res.FramesLost = lost
		s.deps.Metrics.FramesLost(lost)
		log.Warn("frames lost", zap.Int64("lost", lost))
	}
	state.Frames++

	coil, err := s.deps.Measurer.Measure(frame, s.params.Coil, state.Stabilizer.Prior())
	if err != nil {
		if _, saveErr := s.deps.Lines.Commit(ctx, state); saveErr != nil {
			log.Error("save line state", zap.Error(saveErr))
		}
		return nil, s.drop(dropMeasure, err)
	}
	s.recordMeasurement(log, raw.LineID, state, coil)

	res.Measurement = coil.Measurement
	res.Crop = coil.Crop

	best, bands, ok := s.widestBand(log, coil.Raster)
	res.Bands = bands
	if ok {
		crop, next := measure.Stabilize(frame, best, state.Stabilizer, s.params.Stabilizer)
		if next.ReferenceCenter != state.Stabilizer.ReferenceCenter || next.LargestWidth != state.Stabilizer.LargestWidth {
			log.Debug("stabilizer updated",
				zap.Int("center", next.ReferenceCenter),
				zap.Int("width", next.LargestWidth),
			)
		}
		state.Stabilizer = next
		res.Crop = crop
		res.Stabilized = true
		s.deps.Metrics.CropWidth(raw.LineID, next.LargestWidth)
	}

	s.inspect(ctx, log, state, coil, res)

	applied, err := s.deps.Lines.Commit(ctx, state)
	if err != nil {
		return res, err
	}
	if !applied {
		res.Superseded = true
		log.Info("coil changed while frame was processed, frame state discarded")
	}
	return res, nil
}

func (s *InspectionService) recordMeasurement(log *zap.Logger, lineID string, state *entity.LineState, coil measure.CoilResult) {
	m := coil.Measurement
	state.LastMeasurement = m

	if coil.PriorReused {
		log.Debug("width jump, previous measurement reused", zap.Float64("width_mm", m.WidthMM))
	}
	if coil.AlternateUsed {
		log.Debug("measure band out of bounds, full height width used", zap.Float64("width_mm", m.WidthMM))
	}
	if m.Rejected() {
		s.deps.Metrics.MeasurementRejected(lineID)
		log.Warn("coil measurement rejected")
		return
	}

	state.Stabilizer.Remember(m)
	s.deps.Metrics.CoilWidth(lineID, m.WidthMM)
}

// widestBand выбирает самую широкую измеримую полосу и переводит её в масштаб кадра.
func (s *InspectionService) widestBand(log *zap.Logger, raster *entity.EdgeRaster) (entity.IntervalMeasurement, []entity.Band, bool) {
	bands, err := s.deps.Intervals.Scan(raster, s.params.SamplingIntervalPx, s.params.GapPx)
	if err != nil {
		log.Error("interval scan", zap.Error(err))
		return entity.IntervalMeasurement{}, nil, false
	}
	if err := measure.BandErrors(bands); err != nil {
		log.Debug("bands excluded", zap.Error(err))
	}

	scale := 1 / s.params.Coil.ResizeRatio
	var (
		best  entity.IntervalMeasurement
		found bool
	)
	for i := range bands {
		if bands[i].Err != nil {
			continue
		}
		bands[i].Measurement = bands[i].Measurement.Scale(scale)
		bands[i].RowOffset = int(float64(bands[i].RowOffset) * scale)

		m := bands[i].Measurement
		if !m.Measurable() {
			continue
		}
		if !found || m.Distance > best.Distance {
			best, found = m, true
		}
	}
	return best, bands, found
}

// inspect ищет дефекты на обрезанном кадре, сохраняет его и запускает отправку.
func (s *InspectionService) inspect(ctx context.Context, log *zap.Logger, state *entity.LineState, coil measure.CoilResult, res *FrameResult) {
	if s.deps.Detector == nil {
		return
	}

	defects, err := s.deps.Detector.Detect(ctx, res.Crop, s.params.Confidence)
	if err != nil {
		log.Error("defect detection", zap.Error(err))
		return
	}
	res.Defects = defects
	for _, d := range defects {
		x, y := d.Center()
		log.Debug("defect", zap.String("name", d.Name), zap.Int("x", x), zap.Int("y", y), zap.Float64("confidence", d.Confidence))
	}

	if s.params.MinDefectsToSave <= 0 || len(defects) < s.params.MinDefectsToSave || s.deps.Store == nil {
		return
	}

	path, err := s.deps.Store.Save(ctx, res.Crop)
	if err != nil {
		log.Error("save frame", zap.Error(err))
		return
	}
	res.SavedPath = path
	log.Info("frame with defects saved", zap.String("path", path), zap.Int("defects", len(defects)))

	if s.deps.Records != nil && state.OperationID != 0 {
		pic := entity.PictureRecord{
			OperationID:          state.OperationID,
			ProductPositionLeft:  coil.FirstIndex,
			ProductPositionRight: coil.LastIndex,
			ProductPositionStart: coil.Measurement.StartOffsetPx,
			ProductPositionEnd:   coil.Measurement.EndOffsetPx,
			PictureScaleX:        s.params.Coil.MMPerPixel,
			PictureScaleY:        s.params.Coil.MMPerPixel,
			URI:                  path,
			Cutoff:               s.params.Confidence,
			Type:                 pictureType,
			Saved:                true,
			BrightnessMax:        pictureBrightnessMax,
			SystemID:             pictureSystemID,
			CompressionQuality:   pictureCompressionQuality,
		}
		if _, err := s.deps.Records.InsertPicture(ctx, pic); err != nil {
			log.Error("insert picture record", zap.Error(err))
		}
	}

	if s.deps.Uploads != nil {
		if _, err := s.deps.Uploads.MaybePublish(ctx); err != nil {
			log.Error("publish batch", zap.Error(err))
		}
	}
}

func (s *InspectionService) drop(reason string, err error) error {
	s.deps.Metrics.FrameDropped(reason)
	return errors.Wrapf(err, "frame dropped (%s)", reason)
}

// Run обрабатывает кадры линии, пока источник не вернёт io.EOF или ctx не отменён.
// Отброшенные кадры логируются, поток не прерывается.
func (s *InspectionService) Run(ctx context.Context, lineID string, source port.FrameSource) error {
	log := s.log.With(zap.String("line", lineID))
	log.Info("line started")

	for {
		raw, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			log.Info("frame source exhausted")
			return nil
		}
		if ctx.Err() != nil {
			log.Info("line stopped")
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "line %s: next frame", lineID)
		}

		if raw.LineID == "" {
			raw.LineID = lineID
		}
		if _, err := s.ProcessFrame(ctx, raw); err != nil {
			log.Warn("frame not processed", zap.Int64("frame", raw.FrameID), zap.Error(err))
		}
	}
}

// RunLines запускает Run для каждой линии параллельно. Ошибка одной линии останавливает все.
func (s *InspectionService) RunLines(ctx context.Context, sources map[string]port.FrameSource) error {
	g, ctx := errgroup.WithContext(ctx)
	for lineID, source := range sources {
		lineID, source := lineID, source
		g.Go(func() error {
			return s.Run(ctx, lineID, source)
		})
	}
	return g.Wait()
}

type nopMetrics struct{}

func (nopMetrics) FramesLost(int64) {}
func (nopMetrics) FrameDropped(string) {}
func (nopMetrics) LoopDuration(time.Duration) {}
func (nopMetrics) CropWidth(string, int) {}
func (nopMetrics) CoilWidth(string, float64) {}
func (nopMetrics) MeasurementRejected(string) {}

var _ port.Metrics = nopMetrics{}
