package task

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are the exclusion globs used when none are configured.
var DefaultExcludes = []string{
	"**/node_modules/**",
	"**/bin/**",
	"**/obj/**",
	"**/.git/**",
}

// Workspace is the view of a project directory shared by all sources during
// one discovery pass. The file list is enumerated once, on first use.
type Workspace struct {
	root     string
	excludes []string
	logger   *slog.Logger

	once    sync.Once
	files   []string
	rels    []string
	walkErr error
}

// NewWorkspace validates root and excludes and returns a workspace view.
func NewWorkspace(root string, excludes []string, logger *slog.Logger) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotDirectory)
	}
	for _, p := range excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%q: %w", p, ErrInvalidExclude)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		root:     abs,
		excludes: excludes,
		logger:   logger,
	}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// Logger returns the logger sources should report skipped files to.
func (w *Workspace) Logger() *slog.Logger {
	return w.logger
}

// Files returns every non-excluded file under the root, in walk order.
func (w *Workspace) Files() []string {
	w.enumerate()
	return w.files
}

// Find returns files matching any of the patterns, in walk order.
// Patterns without a slash match the base name; others match the
// workspace relative path.
func (w *Workspace) Find(patterns ...string) []string {
	w.enumerate()
	var out []string
	for i, file := range w.files {
		if MatchAny(patterns, w.rels[i]) {
			out = append(out, file)
		}
	}
	return out
}

// MatchAny reports whether a slash separated relative path matches one of
// the source file patterns.
func MatchAny(patterns []string, rel string) bool {
	base := path.Base(rel)
	for _, p := range patterns {
		target := base
		if strings.Contains(p, "/") {
			target = rel
		}
		if ok, _ := doublestar.Match(p, target); ok {
			return true
		}
	}
	return false
}

// HasExtension reports whether any workspace file ends in one of exts.
func (w *Workspace) HasExtension(exts ...string) bool {
	for _, file := range w.Files() {
		ext := strings.ToLower(filepath.Ext(file))
		for _, want := range exts {
			if ext == want {
				return true
			}
		}
	}
	return false
}

// ReadFile reads a workspace file.
func (w *Workspace) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Exists reports whether path exists.
func (w *Workspace) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Rel returns path relative to the root, slash separated.
func (w *Workspace) Rel(p string) string {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// Excluded reports whether a workspace relative path is excluded.
// Directories are excluded when anything beneath them would be.
func (w *Workspace) Excluded(rel string, isDir bool) bool {
	return IsExcluded(w.excludes, rel, isDir)
}

// IsExcluded applies exclusion globs to a slash separated relative path.
func IsExcluded(excludes []string, rel string, isDir bool) bool {
	for _, p := range excludes {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if isDir {
			if ok, _ := doublestar.Match(p, rel+"/_"); ok {
				return true
			}
		}
	}
	return false
}

// WalkErr returns the error that stopped enumeration, if any.
func (w *Workspace) WalkErr() error {
	w.enumerate()
	return w.walkErr
}

func (w *Workspace) enumerate() {
	w.once.Do(func() {
		visited := make(map[string]bool)
		if real, err := filepath.EvalSymlinks(w.root); err == nil {
			visited[real] = true
		}
		w.walkErr = w.walk(w.root, visited)
	})
}

func (w *Workspace) walk(dir string, visited map[string]bool) error {
	// os.ReadDir includes dot directories such as .vscode.
	entries, err := os.ReadDir(dir)
	if err != nil {
		if dir == w.root {
			return err
		}
		w.logger.Debug("skipping unreadable directory", "dir", dir, "err", err)
		return nil
	}

	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())
		rel := w.Rel(entryPath)

		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 {
			info, err := os.Stat(entryPath)
			if err != nil {
				continue
			}
			isDir = info.IsDir()
		}

		if w.Excluded(rel, isDir) {
			continue
		}

		if !isDir {
			w.files = append(w.files, entryPath)
			w.rels = append(w.rels, rel)
			continue
		}

		// Detect symlink cycles by real path.
		realPath, err := filepath.EvalSymlinks(entryPath)
		if err != nil || visited[realPath] {
			continue
		}
		visited[realPath] = true

		if err := w.walk(entryPath, visited); err != nil {
			return err
		}
	}
	return nil
}
