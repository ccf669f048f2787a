package sources

import (
	"context"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// DockerSource discovers Docker Compose commands.
type DockerSource struct{}

// NewDockerSource creates a new Docker Compose source.
func NewDockerSource() *DockerSource {
	return &DockerSource{}
}

// Type returns the task type.
func (s *DockerSource) Type() task.Type {
	return task.TypeDocker
}

// Patterns returns the file patterns this source handles.
func (s *DockerSource) Patterns() []string {
	return []string{
		"docker-compose.yml",
		"docker-compose.yaml",
		"compose.yml",
		"compose.yaml",
	}
}

// Discover finds compose files.
func (s *DockerSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *DockerSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	services, err := mappingValue(data, "services")
	if err != nil {
		return nil, err
	}

	compose := "docker compose -f " + scan.QuotePath(path) + " "
	c := newCollector(s.Type(), path)
	c.add("up", compose+"up").Description = "Start all services"
	c.add("down", compose+"down").Description = "Stop and remove containers"
	c.add("build", compose+"build").Description = "Build service images"

	for i := 0; i+1 < len(services.Content); i += 2 {
		name := services.Content[i].Value
		if t := c.add("up "+name, compose+"up "+name); t != nil {
			t.Description = "Start " + name
		}
	}
	return c.result(), nil
}
