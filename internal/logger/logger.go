// Package logger wraps zap for structured logging across the engine,
// lifecycle, and CLI layers.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps the zap logger with a nil-safe Sync.
type Logger struct {
	*zap.Logger
}

// NewLogger creates a production-configured logger writing structured
// JSON to stdout and errors to stderr.
func NewLogger() (*Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: zapLogger}, nil
}

// With returns a child logger annotated with fields, mirroring zap's
// own With but staying wrapped in *Logger so callers keep Sync.
func (l *Logger) With(fields ...zap.Field) *Logger {
	if l.Logger == nil {
		return l
	}

	return &Logger{Logger: l.Logger.With(fields...)}
}

// Sync flushes any buffered log entries; nil-safe so a zero-value
// Logger in tests does not panic.
func (l *Logger) Sync() error {
	if l.Logger == nil {
		return nil
	}

	return l.Logger.Sync()
}
