package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"media-json/internal/logging"
	"media-json/internal/metrics"
	"media-json/internal/source"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 200 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Patterns are the source globs; their roots are watched recursively
	// and only matching files trigger a rebuild.
	Patterns []string
	Debounce time.Duration
	// Ignore lists files whose changes never trigger a rebuild, such as
	// the generated document itself.
	Ignore []string
}

// RebuildFunc regenerates the document.
type RebuildFunc func(ctx context.Context) error

// Watcher rebuilds the document when source files change.
type Watcher struct {
	cfg     Config
	watcher *fsnotify.Watcher
	ignore  map[string]struct{}

	mu   sync.Mutex
	dirs map[string]struct{}
}

// New creates a Watcher on the roots of cfg.Patterns. Roots that do not
// exist are skipped with a warning; it is an error when none can be watched.
func New(cfg Config) (*Watcher, error) {
	roots := source.Roots(cfg.Patterns)
	if len(roots) == 0 {
		return nil, errors.New("no source patterns to watch")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatchErrors.Inc()
		return nil, err
	}

	w := &Watcher{
		cfg:     cfg,
		watcher: fw,
		ignore:  make(map[string]struct{}, len(cfg.Ignore)),
		dirs:    make(map[string]struct{}),
	}
	for _, p := range cfg.Ignore {
		w.ignore[absPath(p)] = struct{}{}
	}

	for _, root := range roots {
		w.addTree(root)
	}
	if w.Dirs() == 0 {
		_ = fw.Close()
		return nil, errors.New("none of the source roots exist: " + strings.Join(roots, ", "))
	}
	logging.Debug("Watcher started, watching %d directories", w.Dirs())
	return w, nil
}

// Dirs returns the number of watched directories.
func (w *Watcher) Dirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.dirs = make(map[string]struct{})
	w.mu.Unlock()
	metrics.WatchedDirectories.Set(0)
	return w.watcher.Close()
}

// Run calls rebuild once changes have settled for the debounce interval,
// until ctx is canceled. Rebuild errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, rebuild RebuildFunc) error {
	var fire <-chan time.Time
	pending := 0

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event) {
				pending++
				fire = time.After(w.cfg.Debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatchErrors.Inc()

		case <-fire:
			fire = nil
			logging.Debug("Rebuilding after %d change(s)", pending)
			pending = 0
			if err := rebuild(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logging.Error("Rebuild failed: %v", err)
				metrics.WatchRebuildsTotal.WithLabelValues("error").Inc()
				continue
			}
			metrics.WatchRebuildsTotal.WithLabelValues("success").Inc()
		}
	}
}

// handleEvent records event and reports whether it should trigger a
// rebuild.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	name := filepath.Clean(event.Name)

	// Hidden files include the temp files of atomic writes.
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}

	metrics.WatchEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	if _, ok := w.ignore[absPath(name)]; ok {
		return false
	}

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			w.addTree(name)
			return true
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if w.forget(name) {
			return true
		}
	case event.Op == fsnotify.Chmod:
		return false
	}

	return source.Matches(w.cfg.Patterns, name)
}

// addTree watches root and every non-hidden directory below it.
func (w *Watcher) addTree(root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logging.Debug("skipping %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		w.add(path)
		return nil
	})
	if err != nil {
		logging.Warn("cannot watch %s: %v", root, err)
		metrics.WatchErrors.Inc()
	}
}

func (w *Watcher) add(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.dirs[dir]; ok {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		logging.Warn("failed to add path to watcher %s: %v", dir, err)
		metrics.WatchErrors.Inc()
		return
	}
	w.dirs[dir] = struct{}{}
	metrics.WatchedDirectories.Set(float64(len(w.dirs)))
	logging.Debug("Added directory to watcher: %s", dir)
}

// forget drops dir and its subdirectories. fsnotify removes the watches of
// deleted directories itself.
func (w *Watcher) forget(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.dirs[dir]; !ok {
		return false
	}
	prefix := dir + string(filepath.Separator)
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
		}
	}
	metrics.WatchedDirectories.Set(float64(len(w.dirs)))
	return true
}

func eventType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	default:
		return "unknown"
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
