// Package logging builds the structured zap.Logger every other package
// in this module accepts, following the production-config pattern used
// across the teacher repo's services (JSON encoding, level from
// config, ISO8601 timestamps).
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger for the given level name ("debug", "info",
// "warn", "error") and environment. In "production" it emits JSON; in
// anything else it uses the human-readable console encoder, matching
// the dev/prod split in the teacher's StructuredLogger.
func New(level string, environment string) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	zapLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", level, err)
	}
	cfg.Level = zapLevel

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: building logger: %w", err)
	}
	return logger, nil
}
