// Package watch triggers task refreshes when workspace files change or a
// cron schedule fires.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/tasktree/internal/event"
	"github.com/dshills/tasktree/internal/task"
)

// DefaultDebounce is the quiet period before a refresh runs.
const DefaultDebounce = 300 * time.Millisecond

// ErrWatcherClosed is returned when a closed watcher is used.
var ErrWatcherClosed = errors.New("watcher is closed")

// RefreshFunc runs one refresh. paths lists the workspace relative files
// that changed since the last run, sorted; it is empty for scheduled runs.
type RefreshFunc func(ctx context.Context, paths []string) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithExcludes sets the directories that are never watched.
func WithExcludes(excludes []string) Option {
	return func(w *Watcher) {
		w.excludes = slices.Clone(excludes)
	}
}

// WithFilter sets the predicate deciding whether a changed workspace
// relative path is worth a refresh. Without a filter every change counts.
func WithFilter(relevant func(rel string) bool) Option {
	return func(w *Watcher) {
		w.relevant = relevant
	}
}

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithEvents publishes watch.triggered before every refresh.
func WithEvents(pub event.Publisher) Option {
	return func(w *Watcher) {
		w.events = pub
	}
}

// Watcher recursively watches a workspace with fsnotify and debounces
// relevant changes into refresh calls.
type Watcher struct {
	root     string
	excludes []string
	relevant func(rel string) bool
	delay    time.Duration
	logger   *slog.Logger
	events   event.Publisher

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	closed  bool
	paths   map[string]bool
	changed map[string]bool
}

// New creates a watcher for root. Nothing is watched until Run.
func New(root string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     abs,
		excludes: slices.Clone(task.DefaultExcludes),
		delay:    DefaultDebounce,
		logger:   slog.Default(),
		fsw:      fsw,
		paths:    make(map[string]bool),
		changed:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is done, calling refresh after each burst of
// relevant changes. Refresh errors are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context, refresh RefreshFunc) error {
	if err := w.watchTree(w.root); err != nil {
		return err
	}
	w.logger.Info("watching workspace", "root", w.root, "dirs", w.WatchedCount())

	debouncer := NewDebouncer(w.delay, func() {
		paths := w.drain()
		w.trigger(ctx, refresh, "files", paths)
	})
	defer debouncer.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return ErrWatcherClosed
			}
			if w.handle(ev) {
				debouncer.Call()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) trigger(ctx context.Context, refresh RefreshFunc, reason string, paths []string) {
	if ctx.Err() != nil {
		return
	}
	if w.events != nil {
		w.events.Publish(event.WatchTriggered, map[string]any{"reason": reason, "paths": paths})
	}
	if err := refresh(ctx, paths); err != nil {
		w.logger.Warn("refresh failed", "reason", reason, "error", err)
	}
}

// handle records an fsnotify event and reports whether it should trigger a
// refresh.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	rel := w.rel(ev.Name)
	if rel == "" {
		return false
	}

	isDir := false
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			isDir = true
			if task.IsExcluded(w.excludes, rel, true) {
				return false
			}
			if err := w.watchTree(ev.Name); err != nil {
				w.logger.Debug("watch new directory failed", "dir", ev.Name, "error", err)
			}
			// A new directory may bring files with it.
			w.mark(rel)
			return true
		}
	}
	if task.IsExcluded(w.excludes, rel, isDir) {
		return false
	}

	// A removed or renamed path may have been a directory full of task
	// files, so it always counts.
	gone := ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)
	if gone {
		w.forget(ev.Name)
	}
	if !gone && w.relevant != nil && !w.relevant(rel) {
		return false
	}
	w.mark(rel)
	return true
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) mark(rel string) {
	w.mu.Lock()
	w.changed[rel] = true
	w.mu.Unlock()
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.changed))
	for p := range w.changed {
		paths = append(paths, p)
	}
	clear(w.changed)
	slices.Sort(paths)
	return paths
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p := range w.paths {
		if p == path || strings.HasPrefix(p, path+string(filepath.Separator)) {
			delete(w.paths, p)
		}
	}
}

// watchTree adds dir and every non-excluded directory below it.
func (w *Watcher) watchTree(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return task.ErrNotDirectory
	}

	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel := w.rel(p); rel != "" && task.IsExcluded(w.excludes, rel, true) {
			return filepath.SkipDir
		}
		return w.add(p)
	})
}

func (w *Watcher) add(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	if w.paths[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Debug("watch directory failed", "dir", dir, "error", err)
		return nil
	}
	w.paths[dir] = true
	return nil
}

// IsWatching reports whether dir is watched.
func (w *Watcher) IsWatching(dir string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paths[abs]
}

// WatchedCount returns the number of watched directories.
func (w *Watcher) WatchedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.paths)
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.fsw.Close()
}
