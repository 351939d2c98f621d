// Package logger собирает zap-логгер сервиса с ротацией файла через lumberjack.
package logger

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Ротация файла лога: 10 МБ, одна резервная копия
const (
	maxFileSizeMB = 10
	maxBackups    = 1
)

// Options настройки логгера
type Options struct {
	Level string // debug, info, warn, error
	Dir   string // пусто — только stdout
	Name  string // имя файла без расширения и имя логгера
}

// EncoderConfig формат записей: ISO8601, уровень заглавными, короткий caller.
func EncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// New создаёт логгер. Возвращаемая функция закрывает файл лога.
func New(opts Options) (*zap.Logger, func() error, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, nil, errors.Wrapf(err, "log level %q", opts.Level)
		}
	}

	encoder := zapcore.NewConsoleEncoder(EncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}
	closeFn := func() error { return nil }

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, errors.Wrapf(err, "create log dir %s", opts.Dir)
		}
		name := opts.Name
		if name == "" {
			name = "coil-vision"
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, name+".log"),
			MaxSize:    maxFileSizeMB,
			MaxBackups: maxBackups,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(file), level))
		closeFn = file.Close
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	if opts.Name != "" {
		log = log.Named(opts.Name)
	}
	return log, closeFn, nil
}
