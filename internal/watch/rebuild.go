package watch

import (
	"time"

	"go.uber.org/zap"

	"github.com/needs-tools/needschema/internal/compiler/cache"
)

// Build is the outcome of recompiling one input
type Build struct {
	Path     string
	Entry    *cache.Entry
	Cached   bool
	Err      error
	Duration time.Duration
}

// Failed reports whether the input could not be loaded or produced errors
func (b Build) Failed() bool {
	return b.Err != nil || (b.Entry != nil && b.Entry.Result.Diagnostics.HasErrors())
}

// Rebuilder recompiles inputs through a cache and hands every build to a sink
type Rebuilder struct {
	cache    *cache.Cache
	settings cache.Settings
	logger   *zap.Logger
	onBuild  func(Build)
}

// NewRebuilder creates a rebuilder. onBuild may be nil.
func NewRebuilder(c *cache.Cache, settings cache.Settings, logger *zap.Logger, onBuild func(Build)) *Rebuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.New(logger)
	}
	return &Rebuilder{
		cache:    c,
		settings: settings,
		logger:   logger,
		onBuild:  onBuild,
	}
}

// Build recompiles paths in order. Unchanged inputs are served from the cache.
func (r *Rebuilder) Build(paths []string) []Build {
	builds := make([]Build, 0, len(paths))
	for _, path := range paths {
		start := time.Now()
		entry, cached, err := r.cache.Compile(path, r.settings)
		b := Build{
			Path:     path,
			Entry:    entry,
			Cached:   cached,
			Err:      err,
			Duration: time.Since(start),
		}

		if err != nil {
			r.logger.Warn("rebuild failed", zap.String("path", path), zap.Error(err))
		} else {
			r.logger.Debug("rebuilt schema",
				zap.String("path", path),
				zap.Bool("cached", cached),
				zap.Duration("duration", b.Duration),
			)
		}

		if r.onBuild != nil {
			r.onBuild(b)
		}
		builds = append(builds, b)
	}
	return builds
}
