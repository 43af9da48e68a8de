package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last database file event
// before caches are invalidated.
const DefaultDebounce = 100 * time.Millisecond

// Invalidator is anything holding a cache derived from the store.
type Invalidator interface {
	Invalidate()
}

// Watcher invalidates caches when the database file or its WAL changes,
// which is how writes from other processes become visible. Local writes
// trigger it too; an extra invalidation only costs one read.
type Watcher struct {
	fs       *fsnotify.Watcher
	dir      string
	files    map[string]struct{}
	targets  []Invalidator
	debounce time.Duration
	logger   *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values are ignored.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the logger. Default slog.Default().
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher watches the directory holding dbPath. fsnotify cannot watch a
// file that is replaced, so the directory is watched and events are
// filtered by name.
func NewWatcher(dbPath string, targets []Invalidator, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dbPath, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	dir := filepath.Dir(abs)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	base := filepath.Base(abs)
	w := &Watcher{
		fs:  fw,
		dir: dir,
		files: map[string]struct{}{
			base:          {},
			base + "-wal": {},
		},
		targets:  targets,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run delivers invalidations until ctx is cancelled or the watcher is
// closed. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("database watcher error", "dir", w.dir, "error", err)

		case <-timer.C:
			for _, t := range w.targets {
				t.Invalidate()
			}
			w.logger.Debug("database changed, caches invalidated", "targets", len(w.targets))
		}
	}
}

// Close stops watching. Run returns once its event channel closes.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if _, ok := w.files[filepath.Base(event.Name)]; !ok {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
