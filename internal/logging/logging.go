// Package logging builds the zap logger used by the CLI.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger flavor
type Options struct {
	// Verbose enables debug output in a human-readable layout
	Verbose bool
	// JSON switches to structured JSON output
	JSON bool
}

// New returns a logger for the given options. Without Verbose or JSON the
// logger discards everything. If the zap configuration cannot be built the
// no-op logger is returned together with the error.
func New(opts Options) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	switch {
	case opts.JSON:
		cfg := zap.NewProductionConfig()
		if opts.Verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = cfg.Build()
	case opts.Verbose:
		logger, err = zap.NewDevelopment()
	default:
		return zap.NewNop(), nil
	}
	if err != nil {
		return zap.NewNop(), err
	}
	return logger, nil
}

// Sync flushes a logger, ignoring the error stderr returns on some platforms.
func Sync(logger *zap.Logger) {
	_ = logger.Sync()
}
