// Package sources provides task discovery sources for various build systems.
package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/tasktree/internal/task"
)

// All returns every built-in source in priority order. The Lua source
// reads scripts from luaDir, relative to the workspace root.
func All(luaDir string) []task.Source {
	return []task.Source{
		NewShellSource(),
		NewNPMSource(),
		NewMakefileSource(),
		NewLaunchSource(),
		NewVSCodeSource(),
		NewPythonSource(),
		NewPowerShellSource(),
		NewGradleSource(),
		NewCargoSource(),
		NewMavenSource(),
		NewAntSource(),
		NewJustSource(),
		NewTaskfileSource(),
		NewDenoSource(),
		NewRakeSource(),
		NewComposerSource(),
		NewDockerSource(),
		NewDotnetSource(),
		NewMarkdownSource(),
		NewLuaSource(luaDir),
	}
}

// Select returns the sources whose type is named in types. An empty list
// selects every source.
func Select(luaDir string, types []string) ([]task.Source, error) {
	all := All(luaDir)
	if len(types) == 0 {
		return all, nil
	}
	want := make(map[task.Type]bool, len(types))
	for _, name := range types {
		t, ok := task.ParseType(name)
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		want[t] = true
	}
	var out []task.Source
	for _, s := range all {
		if want[s.Type()] {
			out = append(out, s)
		}
	}
	return out, nil
}

// parseFunc turns one file's contents into tasks. Returning an error skips
// the file.
type parseFunc func(ws *task.Workspace, path string, data []byte) ([]*task.Task, error)

// eachFile reads every workspace file matching patterns and collects the
// tasks parse returns. Unreadable or unparseable files are logged and
// skipped; only context cancellation fails the source.
func eachFile(ctx context.Context, ws *task.Workspace, typ task.Type, patterns []string, parse parseFunc) ([]*task.Task, error) {
	var tasks []*task.Task
	for _, path := range ws.Find(patterns...) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		data, err := ws.ReadFile(path)
		if err != nil {
			ws.Logger().Debug("skipping unreadable file", "source", typ, "file", path, "err", err)
			continue
		}
		found, err := parse(ws, path, data)
		if err != nil {
			ws.Logger().Debug("skipping malformed file", "source", typ, "file", path, "err", err)
			continue
		}
		tasks = append(tasks, found...)
	}
	return tasks, nil
}

// collector builds the task list for one file, dropping repeated names.
type collector struct {
	typ   task.Type
	path  string
	seen  map[string]bool
	tasks []*task.Task
}

func newCollector(typ task.Type, path string) *collector {
	return &collector{typ: typ, path: path, seen: make(map[string]bool)}
}

// add creates a task for name unless the file already produced one.
// The returned task is nil for duplicates.
func (c *collector) add(name, command string) *task.Task {
	if name == "" || c.seen[name] {
		return nil
	}
	c.seen[name] = true
	t := task.New(c.typ, c.path, name)
	t.Command = command
	t.Cwd = filepath.Dir(c.path)
	c.tasks = append(c.tasks, t)
	return t
}

// get returns the task already created for name, or nil.
func (c *collector) get(name string) *task.Task {
	for _, t := range c.tasks {
		if t.Label == name {
			return t
		}
	}
	return nil
}

func (c *collector) result() []*task.Task {
	return c.tasks
}

// findWrapper looks for a build tool wrapper script such as gradlew in dir
// and its ancestors, stopping at the workspace root. It returns the command
// prefix to use from dir, or "" when no wrapper exists.
func findWrapper(ws *task.Workspace, dir, name string) string {
	root := ws.Root()
	for cur := dir; ; cur = filepath.Dir(cur) {
		candidate := filepath.Join(cur, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			rel, err := filepath.Rel(dir, candidate)
			if err != nil {
				return candidate
			}
			rel = filepath.ToSlash(rel)
			if !strings.HasPrefix(rel, "../") {
				rel = "./" + rel
			}
			return rel
		}
		if cur == root || !strings.HasPrefix(cur, root) || filepath.Dir(cur) == cur {
			return ""
		}
	}
}

// jvmExtensions gate the Maven and Gradle sources.
var jvmExtensions = []string{".java", ".kt", ".groovy", ".scala"}
