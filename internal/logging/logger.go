// Package logging builds the zap loggers used across pddlsim. Every component
// logs through a category-named child of one base logger so output can be
// filtered per subsystem.
package logging

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // CLI startup, config loading
	CategoryGrounding  Category = "grounding"  // Schema compilation and grounding calls
	CategorySolver     Category = "solver"     // Backend evaluation
	CategorySimulation Category = "simulation" // Episode steps
	CategoryStore      Category = "store"      // Episode persistence
	CategoryConfig     Category = "config"     // Config validation and overrides
)

// New builds a base logger. format is "json" for production encoding or
// "text" for the human-readable console encoder. level is any zap level name.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "text", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q (want json or text)", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// For returns the category child of base. A nil base yields a no-op logger.
func For(base *zap.Logger, category Category) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(string(category))
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger { return zap.NewNop() }

// Timer helps measure operation duration
type Timer struct {
	logger *zap.Logger
	op     string
	start  time.Time
	fields []zap.Field
}

// StartTimer begins timing an operation. fields are attached to the
// completion entry.
func StartTimer(logger *zap.Logger, operation string, fields ...zap.Field) *Timer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Timer{
		logger: logger,
		op:     operation,
		start:  time.Now(),
		fields: fields,
	}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.logger.Debug(t.op+" completed", t.with(elapsed)...)
	return elapsed
}

// StopWithInfo logs the elapsed time at info level.
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	t.logger.Info(t.op+" completed", t.with(elapsed)...)
	return elapsed
}

// StopWithThreshold warns when the operation took longer than threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		t.logger.Warn(t.op+" slow", append(t.with(elapsed), zap.Duration("threshold", threshold))...)
	} else {
		t.logger.Debug(t.op+" completed", t.with(elapsed)...)
	}
	return elapsed
}

func (t *Timer) with(elapsed time.Duration) []zap.Field {
	out := make([]zap.Field, 0, len(t.fields)+1)
	out = append(out, t.fields...)
	return append(out, zap.Duration("elapsed", elapsed))
}
