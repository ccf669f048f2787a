package sources

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// LaunchSource discovers debug configurations in .vscode/launch.json.
type LaunchSource struct{}

// NewLaunchSource creates a new launch.json source.
func NewLaunchSource() *LaunchSource {
	return &LaunchSource{}
}

// Type returns the task type.
func (s *LaunchSource) Type() task.Type {
	return task.TypeLaunch
}

// Patterns returns the file patterns this source handles.
func (s *LaunchSource) Patterns() []string {
	return []string{"**/.vscode/launch.json"}
}

// Discover finds launch configurations and compounds.
func (s *LaunchSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *LaunchSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	doc, err := scan.JSONC(data)
	if err != nil {
		return nil, err
	}

	c := newCollector(s.Type(), path)
	add := func(name, desc string) {
		if t := c.add(name, name); t != nil {
			t.Category = task.CategoryVSCodeLaunch
			t.Description = desc
			t.Cwd = ""
		}
	}

	gjson.GetBytes(doc, "configurations").ForEach(func(_, value gjson.Result) bool {
		desc := value.Get("type").String()
		if req := value.Get("request").String(); req != "" {
			desc = fmt.Sprintf("%s %s", desc, req)
		}
		add(value.Get("name").String(), desc)
		return true
	})
	gjson.GetBytes(doc, "compounds").ForEach(func(_, value gjson.Result) bool {
		add(value.Get("name").String(), "compound")
		return true
	})
	return c.result(), nil
}
