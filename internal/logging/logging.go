// Package logging builds the zap loggers used across Duende's
// subsystems, adapted from the teacher's createLogger (production
// config, ISO8601 timestamps, configurable sinks with a fallback to
// zap's default production logger).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how New builds a logger.
type Options struct {
	// Development enables human-readable console output and debug level.
	Development bool

	// OutputPaths are zap sink paths ("stdout", "stderr", or a file
	// path). When empty, zap's own default for the chosen config is kept
	// (["stderr"] for both production and development).
	OutputPaths []string

	// ErrorOutputPaths are the sinks for zap's own internal errors.
	// Defaults to ["stderr"] when empty.
	ErrorOutputPaths []string

	// Level is one of "debug", "info", "warn", "error". Defaults to
	// "info" in production mode, "debug" in development mode.
	Level string
}

// New builds a zap.Logger from opts. On sink construction failure (e.g.
// an unwritable log file) it falls back to zap.NewProduction(), which
// writes to stderr, rather than leaving the caller without any logger
// at all.
func New(opts Options) *zap.Logger {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}
	if len(opts.ErrorOutputPaths) > 0 {
		cfg.ErrorOutputPaths = opts.ErrorOutputPaths
	}
	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err == nil {
			cfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

// DaemonFields returns the standard field set every log line emitted
// about a specific daemon carries, so call sites don't have to repeat
// the same two zap.String calls.
func DaemonFields(id, name string) []zap.Field {
	return []zap.Field{
		zap.String("daemon_id", id),
		zap.String("daemon_name", name),
	}
}
