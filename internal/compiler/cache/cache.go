package cache

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/needs-tools/needschema/internal/compiler/errors"
	"github.com/needs-tools/needschema/internal/compiler/schema"
	"github.com/needs-tools/needschema/internal/metamodel/load"
)

// Settings are the compile options that change the produced bytes
type Settings struct {
	Policy errors.Policy
	Format schema.Format
}

// Entry is one cached compilation
type Entry struct {
	Path        string
	Key         string
	Result      *schema.Result
	Output      []byte
	CachedAt    time.Time
	LastChecked time.Time
}

// Stats reports cache effectiveness
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// HitRate returns the cache hit rate as a percentage
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total) * 100.0
}

// Cache provides in-memory caching of compiled schemas, one entry per input path
type Cache struct {
	entries map[string]*Entry
	hasher  *FileHasher
	logger  *zap.Logger
	mu      sync.RWMutex

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an empty cache. A nil logger discards output.
func New(logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		entries: make(map[string]*Entry),
		hasher:  NewFileHasher(),
		logger:  logger,
	}
}

// Get returns the entry for path when it was compiled under key
func (c *Cache) Get(path, key string) (*Entry, bool) {
	c.mu.RLock()
	entry, exists := c.entries[path]
	c.mu.RUnlock()

	if !exists || entry.Key != key {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry, true
}

// Set stores a compilation for path, replacing any older one
func (c *Cache) Set(path, key string, res *schema.Result, output []byte) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entry := &Entry{
		Path:        path,
		Key:         key,
		Result:      res,
		Output:      output,
		CachedAt:    now,
		LastChecked: now,
	}
	c.entries[path] = entry
	return entry
}

// Compile returns the compiled schema of the file at path, reusing the cached
// result when neither the content nor the settings changed. Load failures
// are returned as errors; compile findings live in Entry.Result.
func (c *Cache) Compile(path string, s Settings) (*Entry, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	key := c.hasher.Key(c.hasher.HashContent(data), s)

	if entry, ok := c.Get(path, key); ok {
		c.touch(path)
		c.logger.Debug("schema cache hit", zap.String("path", path))
		return entry, true, nil
	}

	loaded, err := load.Bytes(data, load.FormatFor(path))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s: %w", path, err)
	}
	loaded.Diagnostics.WithFile(path)

	res, _ := schema.Compile(loaded.Table, schema.WithPolicy(s.Policy), schema.WithLogger(c.logger))
	res.Diagnostics = append(loaded.Diagnostics, res.Diagnostics.WithFile(path)...)

	output, err := schema.Encode(res.Document, s.Format)
	if err != nil {
		return nil, false, err
	}

	c.logger.Debug("schema cache miss", zap.String("path", path), zap.String("key", key[:12]))
	return c.Set(path, key, res, output), false, nil
}

func (c *Cache) touch(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[path]; ok {
		entry.LastChecked = time.Now()
	}
}

// Invalidate removes an entry from the cache
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, path)
}

// InvalidateAll clears the entire cache
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
}

// Size returns the number of cached entries
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Prune removes entries that haven't been used in the given duration
func (c *Cache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	pruned := 0
	for path, entry := range c.entries {
		if now.Sub(entry.LastChecked) > maxAge {
			delete(c.entries, path)
			pruned++
		}
	}
	return pruned
}

// Stats returns a snapshot of the cache counters
func (c *Cache) Stats() Stats {
	return Stats{
		Entries: c.Size(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
