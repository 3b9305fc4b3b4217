// Package utils holds the small amount of process-wide setup shared by
// every cmd entrypoint.
package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-wide structured logger from the configured
// log level. Production encoding (JSON, ISO8601 timestamps) is always
// used — this service has no interactive/console mode distinct from its
// deployed form.
func NewLogger(level string) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(parsed)

	return zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}
