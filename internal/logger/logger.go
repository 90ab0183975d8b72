package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a new zap logger writing to stderr. Development mode uses a
// colored console encoder at debug level; otherwise JSON at info level.
func New(development bool) (*zap.Logger, error) {
	return NewWithLevel(development, "")
}

// NewWithLevel is New with an explicit minimum level such as "warn".
// An empty level keeps the mode's default.
func NewWithLevel(development bool, level string) (*zap.Logger, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	return cfg.Build()
}

// Must creates a logger or panics
func Must(development bool) *zap.Logger {
	log, err := New(development)
	if err != nil {
		panic(err)
	}
	return log
}
