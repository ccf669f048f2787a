package sources

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// errInvalidJSON is returned by JSON based parsers for malformed documents.
var errInvalidJSON = errors.New("invalid json")

// NPMSource discovers scripts from package.json files.
type NPMSource struct{}

// NewNPMSource creates a new package.json source.
func NewNPMSource() *NPMSource {
	return &NPMSource{}
}

// Type returns the task type.
func (s *NPMSource) Type() task.Type {
	return task.TypeNPM
}

// Patterns returns the file patterns this source handles.
func (s *NPMSource) Patterns() []string {
	return []string{"package.json"}
}

// Discover finds scripts in package.json files.
func (s *NPMSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *NPMSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	if !gjson.ValidBytes(data) {
		return nil, errInvalidJSON
	}

	pm := detectPackageManager(filepath.Dir(path))
	c := newCollector(s.Type(), path)

	// ForEach walks keys in document order.
	gjson.GetBytes(data, "scripts").ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			return true
		}
		name := key.String()
		if t := c.add(name, pm+" run "+name); t != nil {
			t.Description = scan.Truncate(value.String(), 80)
		}
		return true
	})
	return c.result(), nil
}

// detectPackageManager determines which package manager to use.
func detectPackageManager(dir string) string {
	// Check for lock files in order of preference
	lockFiles := []struct {
		file    string
		manager string
	}{
		{"pnpm-lock.yaml", "pnpm"},
		{"yarn.lock", "yarn"},
		{"bun.lockb", "bun"},
		{"bun.lock", "bun"},
		{"package-lock.json", "npm"},
	}

	for _, lf := range lockFiles {
		if _, err := os.Stat(filepath.Join(dir, lf.file)); err == nil {
			return lf.manager
		}
	}

	// Default to npm
	return "npm"
}
