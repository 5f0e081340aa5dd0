// Package watch recompiles metamodel files when they change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is used when a zero debounce duration is given
const DefaultDebounce = 300 * time.Millisecond

// FileWatcher monitors a fixed set of files and reports debounced changes
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	targets   map[string]struct{}
	dirs      []string
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewFileWatcher creates a watcher for paths. onChange receives the changed
// paths, sorted, once the debounce window closes.
func NewFileWatcher(paths []string, debounce time.Duration, logger *zap.Logger, onChange func([]string)) (*FileWatcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:   watcher,
		debouncer: NewDebouncer(debounce),
		targets:   make(map[string]struct{}, len(paths)),
		logger:    logger,
		stopChan:  make(chan struct{}),
	}

	seenDirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		fw.targets[abs] = struct{}{}
		// Editors replace files by rename, so the directory is watched.
		if dir := filepath.Dir(abs); !seenDirs[dir] {
			seenDirs[dir] = true
			fw.dirs = append(fw.dirs, dir)
		}
	}

	fw.debouncer.SetCallback(onChange)
	return fw, nil
}

// Start begins watching the file system
func (fw *FileWatcher) Start() error {
	for _, dir := range fw.dirs {
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		fw.logger.Debug("watching directory", zap.String("dir", dir))
	}

	fw.wg.Add(1)
	go fw.watch()
	return nil
}

// Run watches until ctx is canceled
func (fw *FileWatcher) Run(ctx context.Context) error {
	if err := fw.Start(); err != nil {
		fw.Stop()
		return err
	}
	<-ctx.Done()
	return fw.Stop()
}

// Stop stops the file watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		close(fw.stopChan)
		fw.wg.Wait()
		fw.debouncer.Stop()
		err = fw.watcher.Close()
	})
	return err
}

// watch is the main event loop
func (fw *FileWatcher) watch() {
	defer fw.wg.Done()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if !fw.isTarget(event.Name) {
				continue
			}
			fw.logger.Debug("file changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			fw.debouncer.Add(event.Name)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("watch error", zap.Error(err))

		case <-fw.stopChan:
			return
		}
	}
}

// isTarget reports whether path is one of the watched files
func (fw *FileWatcher) isTarget(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	_, ok := fw.targets[abs]
	return ok
}

// Debouncer collects file changes and triggers a callback after a quiet period
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
	stopped  bool
}

// NewDebouncer creates a new debouncer instance
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
	}
}

// Add records a changed file and restarts the quiet period
func (d *Debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}
	d.files[file] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// flush hands the accumulated files to the callback. The callback runs
// without the lock held so it may call Add.
func (d *Debouncer) flush() {
	d.mutex.Lock()
	if d.stopped || len(d.files) == 0 {
		d.mutex.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	callback := d.callback
	d.mutex.Unlock()

	sort.Strings(files)
	if callback != nil {
		callback(files)
	}
}

// SetCallback sets the callback function
func (d *Debouncer) SetCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Stop drops pending changes and ignores later ones
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
	d.files = make(map[string]struct{})
}
