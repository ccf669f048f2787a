package sources

import (
	"context"

	"github.com/tidwall/gjson"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// DenoSource discovers tasks from deno.json and deno.jsonc.
type DenoSource struct{}

// NewDenoSource creates a new Deno source.
func NewDenoSource() *DenoSource {
	return &DenoSource{}
}

// Type returns the task type.
func (s *DenoSource) Type() task.Type {
	return task.TypeDeno
}

// Patterns returns the file patterns this source handles.
func (s *DenoSource) Patterns() []string {
	return []string{"deno.json", "deno.jsonc"}
}

// Discover finds deno tasks.
func (s *DenoSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *DenoSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	doc, err := scan.JSONC(data)
	if err != nil {
		return nil, err
	}

	c := newCollector(s.Type(), path)
	gjson.GetBytes(doc, "tasks").ForEach(func(key, value gjson.Result) bool {
		var command, desc string
		switch {
		case value.Type == gjson.String:
			command = value.String()
		case value.IsObject():
			command = value.Get("command").String()
			desc = value.Get("description").String()
		default:
			return true
		}
		if desc == "" {
			desc = scan.Truncate(command, 80)
		}
		name := key.String()
		if t := c.add(name, "deno task "+name); t != nil {
			t.Description = desc
		}
		return true
	})
	return c.result(), nil
}
