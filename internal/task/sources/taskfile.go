package sources

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// TaskfileSource discovers tasks from Taskfile.yml (go-task).
type TaskfileSource struct{}

// NewTaskfileSource creates a new Taskfile source.
func NewTaskfileSource() *TaskfileSource {
	return &TaskfileSource{}
}

// Type returns the task type.
func (s *TaskfileSource) Type() task.Type {
	return task.TypeTaskfile
}

// Patterns returns the file patterns this source handles.
func (s *TaskfileSource) Patterns() []string {
	return []string{
		"Taskfile.yml",
		"Taskfile.yaml",
		"taskfile.yml",
		"taskfile.yaml",
		"Taskfile.dist.yml",
		"Taskfile.dist.yaml",
	}
}

// taskfileDef is the subset of a task definition the source reads.
type taskfileDef struct {
	Desc     string `yaml:"desc"`
	Summary  string `yaml:"summary"`
	Dir      string `yaml:"dir"`
	Internal bool   `yaml:"internal"`
}

// Discover finds tasks in Taskfiles.
func (s *TaskfileSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *TaskfileSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	tasks, err := mappingValue(data, "tasks")
	if err != nil {
		return nil, err
	}

	c := newCollector(s.Type(), path)
	dir := filepath.Dir(path)

	// Mapping nodes alternate key and value; iterating the node keeps the
	// document order a Go map would lose.
	for i := 0; i+1 < len(tasks.Content); i += 2 {
		name := tasks.Content[i].Value
		value := tasks.Content[i+1]

		var def taskfileDef
		if value.Kind == yaml.MappingNode {
			if err := value.Decode(&def); err != nil {
				return nil, fmt.Errorf("task %q: %w", name, err)
			}
		}
		if def.Internal {
			continue
		}

		t := c.add(name, "task "+name)
		if t == nil {
			continue
		}
		t.Description = def.Desc
		if t.Description == "" {
			t.Description = scan.Truncate(scan.FirstLine(def.Summary), 80)
		}
		if def.Dir != "" && !strings.Contains(def.Dir, "{{") {
			if filepath.IsAbs(def.Dir) {
				t.Cwd = def.Dir
			} else {
				t.Cwd = filepath.Join(dir, def.Dir)
			}
		}
	}
	return c.result(), nil
}

// mappingValue decodes a YAML document and returns the mapping stored
// under key at the top level.
func mappingValue(data []byte, key string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level is not a mapping")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != key {
			continue
		}
		v := root.Content[i+1]
		if v.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%q is not a mapping", key)
		}
		return v, nil
	}
	return nil, fmt.Errorf("no %q section", key)
}
