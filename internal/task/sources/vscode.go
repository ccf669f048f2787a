package sources

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// VSCodeSource discovers tasks declared in .vscode/tasks.json. The host
// runs them by label.
type VSCodeSource struct{}

// NewVSCodeSource creates a new tasks.json source.
func NewVSCodeSource() *VSCodeSource {
	return &VSCodeSource{}
}

// Type returns the task type.
func (s *VSCodeSource) Type() task.Type {
	return task.TypeVSCode
}

// Patterns returns the file patterns this source handles.
func (s *VSCodeSource) Patterns() []string {
	return []string{"**/.vscode/tasks.json"}
}

// Discover finds host tasks.
func (s *VSCodeSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *VSCodeSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	doc, err := scan.JSONC(data)
	if err != nil {
		return nil, err
	}

	c := newCollector(s.Type(), path)
	gjson.GetBytes(doc, "tasks").ForEach(func(_, value gjson.Result) bool {
		label := vscodeLabel(value)
		if t := c.add(label, label); t != nil {
			t.Category = task.CategoryVSCodeTasks
			t.Description = value.Get("detail").String()
			t.Cwd = ""
		}
		return true
	})
	return c.result(), nil
}

// vscodeLabel returns the explicit label or the one the host generates for
// contributed task types ("npm: build").
func vscodeLabel(v gjson.Result) string {
	if label := v.Get("label").String(); label != "" {
		return label
	}
	typ := v.Get("type").String()
	for _, key := range []string{"script", "task", "command"} {
		if name := v.Get(key).String(); name != "" && typ != "" {
			return fmt.Sprintf("%s: %s", typ, name)
		}
	}
	return ""
}
