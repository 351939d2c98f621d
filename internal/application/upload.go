package app

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"coil-vision/internal/domain/port"
)

const (
	dayLayout      = "2006-01-02"
	taskTimeLayout = "2006-01-02 15:04:05"
	taskNamePrefix = "New task date "
)

// UploadParams ограничения отправки сохранённых кадров
type UploadParams struct {
	BatchSize        int
	MaxBatchesPerDay int
}

// UploadService копит сохранённые кадры и отправляет их пачками, не чаще
// MaxBatchesPerDay раз за календарный день.
type UploadService struct {
	store     port.ImageStore
	publisher port.BatchPublisher
	params    UploadParams
	log       *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	day       string
	published int
}

// NewUploadService создаёт сервис отправки.
func NewUploadService(store port.ImageStore, publisher port.BatchPublisher, params UploadParams, log *zap.Logger) (*UploadService, error) {
	if store == nil || publisher == nil {
		return nil, errors.New("upload service needs an image store and a publisher")
	}
	if params.BatchSize <= 0 || params.MaxBatchesPerDay < 0 {
		return nil, errors.Errorf("upload limits batch=%d per_day=%d", params.BatchSize, params.MaxBatchesPerDay)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UploadService{store: store, publisher: publisher, params: params, log: log, now: time.Now}, nil
}

// MaybePublish отправляет все сохранённые кадры, если их набралось на пачку и
// дневной лимит не исчерпан. Возвращает true, если пачка ушла.
func (s *UploadService) MaybePublish(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if day := now.Format(dayLayout); day != s.day {
		s.day = day
		s.published = 0
	}
	if s.published >= s.params.MaxBatchesPerDay {
		return false, nil
	}

	paths, err := s.store.List(ctx)
	if err != nil {
		return false, errors.Wrap(err, "list saved images")
	}
	if len(paths) < s.params.BatchSize {
		return false, nil
	}

	name := taskNamePrefix + now.Format(taskTimeLayout)
	if err := s.publisher.PublishBatch(ctx, name, paths); err != nil {
		return false, errors.Wrapf(err, "publish %q", name)
	}
	s.published++

	s.log.Info("batch published",
		zap.String("task", name),
		zap.Int("images", len(paths)),
		zap.Int("published_today", s.published),
	)

	if err := s.store.Clear(ctx); err != nil {
		return true, errors.Wrap(err, "clear published images")
	}
	return true, nil
}

// PublishedToday число пачек, отправленных за текущий день.
func (s *UploadService) PublishedToday() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now().Format(dayLayout) != s.day {
		return 0
	}
	return s.published
}
