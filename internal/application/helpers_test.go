package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"coil-vision/internal/domain/entity"
	"coil-vision/internal/infrastructure/ingest"
	"coil-vision/internal/infrastructure/storage"
	"coil-vision/internal/measure"
)

const (
	testFrameWidth  = 1700
	testFrameHeight = 120
)

// pixelBuilder считает границей каждый ненулевой пиксель кадра.
type pixelBuilder struct{}

func (pixelBuilder) Build(f entity.Frame, _ float64) (*entity.EdgeRaster, error) {
	return &entity.EdgeRaster{Width: f.Width(), Height: f.Height(), Pix: f.Gray8Bytes()}, nil
}

// coilRaw кадр Mono8 с двумя вертикальными краями шириной 5 с центрами left и right.
func coilRaw(lineID string, frameID int64, left, right int) entity.RawFrame {
	data := make([]byte, testFrameWidth*testFrameHeight)
	for y := 0; y < testFrameHeight; y++ {
		for _, c := range []int{left, right} {
			for x := c - 2; x <= c+2; x++ {
				data[y*testFrameWidth+x] = 255
			}
		}
	}
	return entity.RawFrame{
		LineID:      lineID,
		FrameID:     frameID,
		Width:       testFrameWidth,
		Height:      testFrameHeight,
		PixelFormat: entity.PixelFormatMono8,
		Data:        data,
	}
}

func testParams() InspectionParams {
	return InspectionParams{
		Coil: measure.CoilParams{
			MMPerPixel:           1,
			BorderPx:             200,
			DensityThreshold:     0.1,
			ResizeRatio:          1,
			MinCoilWidthMM:       940,
			MaxCoilWidthMM:       1600,
			MaxRelativeDeviation: 0.1,
		},
		SamplingIntervalPx: 40,
		Stabilizer: measure.StabilizerParams{
			MaxCenterDeviationPx: 30,
			MaxWidthDeviationPx:  50,
			SafetyMarginPx:       100,
		},
		Confidence:       0.1,
		MinDefectsToSave: 1,
	}
}

type fixture struct {
	repo    *storage.MemoryLineStateRepository
	lines   *LineService
	metrics *fakeMetrics
	deps    InspectionDeps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	scanner, err := measure.NewBorderScanner(measure.BorderParams{IgnoreMarginPx: 140, MinConsecutive: 5})
	require.NoError(t, err)

	repo := storage.NewMemoryLineStateRepository()
	lines := NewLineService(repo, nil, nil)
	m := newFakeMetrics()
	return &fixture{
		repo:    repo,
		lines:   lines,
		metrics: m,
		deps: InspectionDeps{
			Lines:     lines,
			Decoder:   ingest.Decoder{},
			Measurer:  measure.NewCoilCropMeasurer(pixelBuilder{}, scanner),
			Intervals: measure.NewIntervalScanner(),
			Metrics:   m,
		},
	}
}

func (f *fixture) service(t *testing.T, params InspectionParams) *InspectionService {
	t.Helper()
	svc, err := NewInspectionService(f.deps, params)
	require.NoError(t, err)
	return svc
}

func (f *fixture) state(t *testing.T, lineID string) *entity.LineState {
	t.Helper()
	s, err := f.repo.Get(context.Background(), lineID)
	require.NoError(t, err)
	return s
}

type fakeMetrics struct {
	mu       sync.Mutex
	lost     int64
	dropped  map[string]int
	rejected map[string]int
	widths   map[string]float64
	crops    map[string]int
	loops    int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		dropped:  make(map[string]int),
		rejected: make(map[string]int),
		widths:   make(map[string]float64),
		crops:    make(map[string]int),
	}
}

func (m *fakeMetrics) FramesLost(n int64) {
	m.mu.Lock()
	m.lost += n
	m.mu.Unlock()
}

func (m *fakeMetrics) FrameDropped(reason string) {
	m.mu.Lock()
	m.dropped[reason]++
	m.mu.Unlock()
}

func (m *fakeMetrics) LoopDuration(time.Duration) {
	m.mu.Lock()
	m.loops++
	m.mu.Unlock()
}

func (m *fakeMetrics) CropWidth(line string, px int) {
	m.mu.Lock()
	m.crops[line] = px
	m.mu.Unlock()
}

func (m *fakeMetrics) CoilWidth(line string, mm float64) {
	m.mu.Lock()
	m.widths[line] = mm
	m.mu.Unlock()
}

func (m *fakeMetrics) MeasurementRejected(line string) {
	m.mu.Lock()
	m.rejected[line]++
	m.mu.Unlock()
}

type fakeDetector struct {
	defects []entity.Defect
	err     error
	widths  []int
}

func (d *fakeDetector) Detect(_ context.Context, frame entity.Frame, _ float64) ([]entity.Defect, error) {
	d.widths = append(d.widths, frame.Width())
	return d.defects, d.err
}

type fakeStore struct {
	mu       sync.Mutex
	paths    []string
	saveErr  error
	clearErr error
	cleared  int
}

func (s *fakeStore) Save(_ context.Context, _ entity.Frame) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", s.saveErr
	}
	p := fmt.Sprintf("/defects/%d.png", len(s.paths)+1)
	s.paths = append(s.paths, p)
	return p, nil
}

func (s *fakeStore) List(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...), nil
}

func (s *fakeStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.paths = nil
	s.cleared++
	return nil
}

type batch struct {
	name  string
	paths []string
}

type fakePublisher struct {
	batches []batch
	err     error
}

func (p *fakePublisher) PublishBatch(_ context.Context, name string, paths []string) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, batch{name: name, paths: paths})
	return nil
}

type fakeRecords struct {
	mu     sync.Mutex
	ops    []entity.OperationRecord
	pics   []entity.PictureRecord
	opErr  error
	picErr error
}

func (r *fakeRecords) InsertOperation(_ context.Context, op entity.OperationRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opErr != nil {
		return 0, r.opErr
	}
	r.ops = append(r.ops, op)
	return int64(len(r.ops)), nil
}

func (r *fakeRecords) InsertPicture(_ context.Context, pic entity.PictureRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.picErr != nil {
		return 0, r.picErr
	}
	r.pics = append(r.pics, pic)
	return int64(len(r.pics)), nil
}

// sliceSource отдаёт заранее подготовленные кадры, затем io.EOF.
type sliceSource struct {
	mu     sync.Mutex
	frames []entity.RawFrame
}

func (s *sliceSource) Next(ctx context.Context) (entity.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return entity.RawFrame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return entity.RawFrame{}, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}
