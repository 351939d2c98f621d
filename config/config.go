package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения: COIL_MEASURE_MM_PER_PIXEL и т.д.
const EnvPrefix = "COIL"

type Config struct {
	Measure    MeasureConfig    `mapstructure:"measure"`
	Interval   IntervalConfig   `mapstructure:"interval"`
	Stabilizer StabilizerConfig `mapstructure:"stabilizer"`
	Detection  DetectionConfig  `mapstructure:"detection"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
	Lines      []LineConfig     `mapstructure:"lines"`
}

type MeasureConfig struct {
	MMPerPixel            float64 `mapstructure:"mm_per_pixel"`
	BorderPx              int     `mapstructure:"border_px"`
	DensityThreshold      float64 `mapstructure:"density_threshold"`
	ResizeRatio           float64 `mapstructure:"resize_ratio"`
	MinCoilWidthMM        float64 `mapstructure:"min_coil_width_mm"`
	MaxCoilWidthMM        float64 `mapstructure:"max_coil_width_mm"`
	MaxRelativeDeviation  float64 `mapstructure:"max_relative_deviation"`
	IgnoreMarginPx        int     `mapstructure:"ignore_margin_px"`
	MinConsecutiveColumns int     `mapstructure:"min_consecutive_columns"`
	BlurKernelWidth       int     `mapstructure:"blur_kernel_width"`
	BlurKernelHeight      int     `mapstructure:"blur_kernel_height"`
	CannyLow              float32 `mapstructure:"canny_low"`
	CannyHigh             float32 `mapstructure:"canny_high"`
	ContourThickness      int     `mapstructure:"contour_thickness"`
}

type IntervalConfig struct {
	SamplingIntervalPx int `mapstructure:"sampling_interval_px"`
	GapPx              int `mapstructure:"gap_px"`
}

type StabilizerConfig struct {
	MaxCenterDeviationPx int `mapstructure:"max_center_deviation_px"`
	MaxWidthDeviationPx  int `mapstructure:"max_width_deviation_px"`
	SafetyMarginPx       int `mapstructure:"safety_margin_px"`
}

type DetectionConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	Confidence       float64 `mapstructure:"confidence"`
	MinDefectsToSave int     `mapstructure:"min_defects_to_save"`
}

type StorageConfig struct {
	ImageDir string `mapstructure:"image_dir"`
	MySQLDSN string `mapstructure:"mysql_dsn"` // пусто — записи в БД не ведутся
}

type UploadConfig struct {
	BatchSize        int    `mapstructure:"batch_size"`
	MaxBatchesPerDay int    `mapstructure:"max_batches_per_day"`
	TelegramToken    string `mapstructure:"telegram_token"` // пусто — отправка и бот выключены
	TelegramChatID   int64  `mapstructure:"telegram_chat_id"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // пусто — метрики не публикуются
}

type LogConfig struct {
	Level         string `mapstructure:"level"`
	Dir           string `mapstructure:"dir"`
	ContainerName string `mapstructure:"container_name"`
}

// LineConfig линия и каталог, из которого читаются её кадры
type LineConfig struct {
	ID        string `mapstructure:"id"`
	SourceDir string `mapstructure:"source_dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("measure.mm_per_pixel", 0.5)
	v.SetDefault("measure.border_px", 50)
	v.SetDefault("measure.density_threshold", 0.1)
	v.SetDefault("measure.resize_ratio", 0.5)
	v.SetDefault("measure.min_coil_width_mm", 940)
	v.SetDefault("measure.max_coil_width_mm", 1600)
	v.SetDefault("measure.max_relative_deviation", 0.10)
	v.SetDefault("measure.ignore_margin_px", 140)
	v.SetDefault("measure.min_consecutive_columns", 5)
	v.SetDefault("measure.blur_kernel_width", 1)
	v.SetDefault("measure.blur_kernel_height", 99)
	v.SetDefault("measure.canny_low", 13)
	v.SetDefault("measure.canny_high", 35)
	v.SetDefault("measure.contour_thickness", 3)

	v.SetDefault("interval.sampling_interval_px", 50)
	v.SetDefault("interval.gap_px", 100)

	v.SetDefault("stabilizer.max_center_deviation_px", 30)
	v.SetDefault("stabilizer.max_width_deviation_px", 50)
	v.SetDefault("stabilizer.safety_margin_px", 100)

	v.SetDefault("detection.enabled", true)
	v.SetDefault("detection.confidence", 0.1)
	v.SetDefault("detection.min_defects_to_save", 1)

	v.SetDefault("storage.image_dir", "defects")
	v.SetDefault("storage.mysql_dsn", "")

	v.SetDefault("upload.batch_size", 100)
	v.SetDefault("upload.max_batches_per_day", 2)
	v.SetDefault("upload.telegram_token", "")
	v.SetDefault("upload.telegram_chat_id", 0)

	v.SetDefault("metrics.addr", ":8123")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.container_name", "coil-vision")
}

// Load читает .env, затем config.yaml (или файл path) и переменные окружения COIL_*.
// Отсутствие .env и config.yaml не ошибка.
func Load(path string) (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// старое имя переменной токена
	if err := v.BindEnv("upload.telegram_token", EnvPrefix+"_UPLOAD_TELEGRAM_TOKEN", "TELEGRAM_TOKEN"); err != nil {
		return nil, errors.Wrap(err, "bind telegram token")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет то, что нельзя исправить значением по умолчанию.
func (c *Config) Validate() error {
	if c.Measure.MMPerPixel <= 0 {
		return errors.Errorf("measure.mm_per_pixel must be positive, got %v", c.Measure.MMPerPixel)
	}
	if c.Measure.ResizeRatio <= 0 || c.Measure.ResizeRatio > 1 {
		return errors.Errorf("measure.resize_ratio must be in (0, 1], got %v", c.Measure.ResizeRatio)
	}
	if c.Interval.SamplingIntervalPx <= 0 {
		return errors.Errorf("interval.sampling_interval_px must be positive, got %d", c.Interval.SamplingIntervalPx)
	}
	seen := make(map[string]bool, len(c.Lines))
	for i, l := range c.Lines {
		if l.ID == "" {
			return errors.Errorf("lines[%d]: id is empty", i)
		}
		if seen[l.ID] {
			return errors.Errorf("lines[%d]: duplicate id %q", i, l.ID)
		}
		seen[l.ID] = true
	}
	return nil
}
