package sources

import (
	"context"
	"path"
	"path/filepath"

	"github.com/dshills/tasktree/internal/script"
	"github.com/dshills/tasktree/internal/task"
)

// DefaultLuaDir is where user source scripts live, relative to the root.
const DefaultLuaDir = ".tasktree/sources"

// LuaSource runs user scripts that report extra tasks. Each script defines
// discover(root) returning {name, command, description, cwd} tables.
type LuaSource struct {
	dir string
}

// NewLuaSource creates a Lua script source reading from dir, relative to
// the workspace root. An empty dir uses DefaultLuaDir.
func NewLuaSource(dir string) *LuaSource {
	if dir == "" {
		dir = DefaultLuaDir
	}
	return &LuaSource{dir: filepath.ToSlash(filepath.Clean(dir))}
}

// Type returns the task type.
func (s *LuaSource) Type() task.Type {
	return task.TypeLua
}

// Patterns returns the file patterns this source handles.
func (s *LuaSource) Patterns() []string {
	return []string{path.Join(s.dir, "*.lua")}
}

// Discover runs every script; a failing or slow script is skipped.
func (s *LuaSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), func(ws *task.Workspace, file string, data []byte) ([]*task.Task, error) {
		return s.run(ctx, ws, file, data)
	})
}

func (s *LuaSource) run(ctx context.Context, ws *task.Workspace, file string, data []byte) ([]*task.Task, error) {
	state := script.NewState()
	defer state.Close()

	entries, err := state.Discover(ctx, filepath.Base(file), string(data), ws.Root())
	if err != nil {
		return nil, err
	}

	c := newCollector(s.Type(), file)
	for _, e := range entries {
		t := c.add(e.Name, e.Command)
		if t == nil {
			continue
		}
		t.Description = e.Description
		// Scripts describe workspace tasks, not tasks about the script file.
		t.Cwd = ws.Root()
		if e.Cwd != "" {
			t.Cwd = e.Cwd
			if !filepath.IsAbs(e.Cwd) {
				t.Cwd = filepath.Join(ws.Root(), e.Cwd)
			}
		}
	}
	return c.result(), nil
}
