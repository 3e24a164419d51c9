// Package logging builds the zap loggers used by the commands.
package logging

import (
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLoggerConfig returns a console config with colored levels, ISO8601
// times and no stacktraces.
func NewLoggerConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// Options configures New.
type Options struct {
	Debug bool
	// File, when set, also writes JSON lines to a rotating log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// New builds a sugared logger for the given options.
func New(opts Options) (*zap.SugaredLogger, error) {
	cfg := NewLoggerConfig()
	if opts.Debug {
		cfg.Level.SetLevel(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	if opts.File != "" {
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoderConfig()),
			zapcore.AddSync(newRotator(opts)),
			cfg.Level,
		)
		logger = logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}
	return logger.Sugar(), nil
}

func newRotator(opts Options) *lumberjack.Logger {
	size := opts.MaxSizeMB
	if size <= 0 {
		size = 100
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    size,
		MaxBackups: opts.MaxBackups,
		Compress:   opts.Compress,
	}
}

func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

// NewObservedTestLogger returns a debug logger that records every entry in
// memory.
func NewObservedTestLogger(tb testing.TB) (*zap.SugaredLogger, *observer.ObservedLogs) {
	tb.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core).Sugar(), logs
}
