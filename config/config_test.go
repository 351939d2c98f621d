package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// inTempDir переходит в пустой каталог, чтобы не подхватить чужие .env и config.yaml.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 940.0, cfg.Measure.MinCoilWidthMM)
	require.Equal(t, 1600.0, cfg.Measure.MaxCoilWidthMM)
	require.Equal(t, 0.10, cfg.Measure.MaxRelativeDeviation)
	require.Equal(t, 140, cfg.Measure.IgnoreMarginPx)
	require.Equal(t, 5, cfg.Measure.MinConsecutiveColumns)
	require.Equal(t, 99, cfg.Measure.BlurKernelHeight)
	require.Equal(t, float32(13), cfg.Measure.CannyLow)
	require.Equal(t, float32(35), cfg.Measure.CannyHigh)
	require.Equal(t, 100, cfg.Stabilizer.SafetyMarginPx)
	require.Equal(t, 100, cfg.Upload.BatchSize)
	require.Equal(t, 2, cfg.Upload.MaxBatchesPerDay)
	require.Equal(t, ":8123", cfg.Metrics.Addr)
	require.Empty(t, cfg.Lines)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := inTempDir(t)
	yaml := `
measure:
  mm_per_pixel: 0.8
  border_px: 120
interval:
  sampling_interval_px: 40
lines:
  - id: line-1
    source_dir: /data/line-1
  - id: line-2
    source_dir: /data/line-2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("COIL_MEASURE_BORDER_PX", "90")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 0.8, cfg.Measure.MMPerPixel)
	require.Equal(t, 90, cfg.Measure.BorderPx)
	require.Equal(t, 40, cfg.Interval.SamplingIntervalPx)
	require.Equal(t, "123:abc", cfg.Upload.TelegramToken)
	require.Equal(t, []LineConfig{
		{ID: "line-1", SourceDir: "/data/line-1"},
		{ID: "line-2", SourceDir: "/data/line-2"},
	}, cfg.Lines)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	dir := inTempDir(t)
	_, err := Load(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero scale", "measure:\n  mm_per_pixel: 0\n"},
		{"ratio above one", "measure:\n  resize_ratio: 1.5\n"},
		{"no sampling interval", "interval:\n  sampling_interval_px: 0\n"},
		{"duplicate line", "lines:\n  - id: a\n  - id: a\n"},
		{"unnamed line", "lines:\n  - source_dir: /x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := inTempDir(t)
			path := filepath.Join(dir, "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
