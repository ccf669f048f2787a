package sources

import (
	"context"
	"encoding/xml"
	"strings"

	"github.com/dshills/tasktree/internal/task"
)

// AntSource discovers targets from Ant build files.
type AntSource struct{}

// NewAntSource creates a new build.xml source.
func NewAntSource() *AntSource {
	return &AntSource{}
}

// Type returns the task type.
func (s *AntSource) Type() task.Type {
	return task.TypeAnt
}

// Patterns returns the file patterns this source handles.
func (s *AntSource) Patterns() []string {
	return []string{"build.xml"}
}

// antProject requires a <project> root; other build.xml dialects fail to
// unmarshal and are skipped.
type antProject struct {
	XMLName xml.Name `xml:"project"`
	Default string   `xml:"default,attr"`
	Targets []struct {
		Name        string `xml:"name,attr"`
		Description string `xml:"description,attr"`
	} `xml:"target"`
}

// Discover finds Ant targets.
func (s *AntSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *AntSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	var project antProject
	if err := xml.Unmarshal(data, &project); err != nil {
		return nil, err
	}

	c := newCollector(s.Type(), path)
	for _, target := range project.Targets {
		name := strings.TrimSpace(target.Name)
		// Targets starting with "-" cannot be invoked from the command line.
		if name == "" || strings.HasPrefix(name, "-") {
			continue
		}
		if t := c.add(name, "ant "+name); t != nil {
			t.Description = strings.TrimSpace(target.Description)
			if t.Description == "" && name == project.Default {
				t.Description = "Default target"
			}
		}
	}
	return c.result(), nil
}
