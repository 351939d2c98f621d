package container

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"coil-vision/config"
	telegram "coil-vision/internal/api"
	app "coil-vision/internal/application"
	"coil-vision/internal/domain/port"
	"coil-vision/internal/infrastructure/ingest"
	"coil-vision/internal/infrastructure/metrics"
	"coil-vision/internal/infrastructure/storage"
	"coil-vision/internal/infrastructure/vision"
	"coil-vision/internal/measure"
)

type Container struct {
	Lines      *app.LineService
	Inspection *app.InspectionService
	Uploads    *app.UploadService // nil без Telegram
	Metrics    *metrics.Collector
	Bot        *telegram.Bot // nil без Telegram
	Params     app.InspectionParams

	closers []func() error
}

// New собирает сервисы по конфигурации. MySQL и Telegram подключаются, только если
// заданы mysql_dsn и telegram_token.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Container{
		Metrics: metrics.NewCollector(),
		Params:  InspectionParams(cfg),
	}
	built := false
	defer func() {
		if !built {
			_ = c.Close()
		}
	}()

	var records port.RecordRepository
	if cfg.Storage.MySQLDSN != "" {
		db, err := storage.OpenMySQL(ctx, cfg.Storage.MySQLDSN)
		if err != nil {
			return nil, err
		}
		repo := storage.NewMySQLRecordRepository(db)
		c.closers = append(c.closers, repo.Close)
		records = repo
	}

	c.Lines = app.NewLineService(storage.NewMemoryLineStateRepository(), records, log.Named("lines"))

	edges, err := vision.NewEdgeBuilder(EdgeParams(cfg.Measure))
	if err != nil {
		return nil, errors.Wrap(err, "edge builder")
	}
	scanner, err := measure.NewBorderScanner(measure.BorderParams{
		IgnoreMarginPx: cfg.Measure.IgnoreMarginPx,
		MinConsecutive: cfg.Measure.MinConsecutiveColumns,
	})
	if err != nil {
		return nil, errors.Wrap(err, "border scanner")
	}

	deps := app.InspectionDeps{
		Lines:     c.Lines,
		Decoder:   ingest.Decoder{},
		Measurer:  measure.NewCoilCropMeasurer(edges, scanner),
		Intervals: measure.NewIntervalScanner(),
		Records:   records,
		Metrics:   c.Metrics,
		Log:       log.Named("inspection"),
	}

	var store *storage.FileImageStore
	if cfg.Detection.Enabled {
		deps.Detector = vision.NewContourDetector(vision.DefaultDetectorParams())
		store, err = storage.NewFileImageStore(cfg.Storage.ImageDir)
		if err != nil {
			return nil, err
		}
		deps.Store = store
	}

	if cfg.Upload.TelegramToken != "" {
		client, err := telegram.NewClient(cfg.Upload.TelegramToken)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() error {
			client.StopReceivingUpdates()
			return nil
		})

		if store != nil {
			publisher := telegram.NewPublisher(client, cfg.Upload.TelegramChatID)
			c.Uploads, err = app.NewUploadService(store, publisher, app.UploadParams{
				BatchSize:        cfg.Upload.BatchSize,
				MaxBatchesPerDay: cfg.Upload.MaxBatchesPerDay,
			}, log.Named("upload"))
			if err != nil {
				return nil, err
			}
			deps.Uploads = c.Uploads
		}
		c.Bot = telegram.NewBot(client, c.Lines, cfg.Upload.TelegramChatID, log.Named("bot"))
	}

	c.Inspection, err = app.NewInspectionService(deps, c.Params)
	if err != nil {
		return nil, err
	}
	built = true
	return c, nil
}

// Close освобождает внешние подключения в обратном порядке
func (c *Container) Close() error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, c.closers[i]())
	}
	c.closers = nil
	return err
}

// InspectionParams переводит конфигурацию в параметры конвейера
func InspectionParams(cfg *config.Config) app.InspectionParams {
	m := cfg.Measure
	return app.InspectionParams{
		Coil: measure.CoilParams{
			MMPerPixel:           m.MMPerPixel,
			BorderPx:             m.BorderPx,
			DensityThreshold:     m.DensityThreshold,
			ResizeRatio:          m.ResizeRatio,
			MinCoilWidthMM:       m.MinCoilWidthMM,
			MaxCoilWidthMM:       m.MaxCoilWidthMM,
			MaxRelativeDeviation: m.MaxRelativeDeviation,
		},
		SamplingIntervalPx: cfg.Interval.SamplingIntervalPx,
		GapPx:              cfg.Interval.GapPx,
		Stabilizer: measure.StabilizerParams{
			MaxCenterDeviationPx: cfg.Stabilizer.MaxCenterDeviationPx,
			MaxWidthDeviationPx:  cfg.Stabilizer.MaxWidthDeviationPx,
			SafetyMarginPx:       cfg.Stabilizer.SafetyMarginPx,
		},
		Confidence:       cfg.Detection.Confidence,
		MinDefectsToSave: cfg.Detection.MinDefectsToSave,
	}
}

// EdgeParams настройки карты границ из конфигурации
func EdgeParams(m config.MeasureConfig) vision.EdgeParams {
	return vision.EdgeParams{
		BlurKernelWidth:  m.BlurKernelWidth,
		BlurKernelHeight: m.BlurKernelHeight,
		CannyLow:         m.CannyLow,
		CannyHigh:        m.CannyHigh,
		ContourThickness: m.ContourThickness,
	}
}
