package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel turns a level name into a level that can be changed at runtime.
func ParseLevel(level string) (zap.AtomicLevel, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return zap.NewAtomicLevelAt(lvl), nil
}

// NewLogger builds the process logger on top of level. Development gets the
// console encoder, everything else JSON.
func NewLogger(environment string, level zap.AtomicLevel) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = level

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
