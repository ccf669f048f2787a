package sources

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// GradleSource discovers Gradle tasks from Groovy and Kotlin build scripts.
type GradleSource struct{}

// NewGradleSource creates a new Gradle source.
func NewGradleSource() *GradleSource {
	return &GradleSource{}
}

// Type returns the task type.
func (s *GradleSource) Type() task.Type {
	return task.TypeGradle
}

// Patterns returns the file patterns this source handles.
func (s *GradleSource) Patterns() []string {
	return []string{"build.gradle", "build.gradle.kts"}
}

var (
	// task name, task name(type: Copy), task name {
	gradleTaskPattern = regexp.MustCompile(`^\s*task\s+([A-Za-z_][\w-]*)`)
	// tasks.register("name"), tasks.register<Copy>("name"), tasks.create("name")
	gradleRegisterPattern = regexp.MustCompile(`tasks\.(?:register|create)(?:<[\w.]+>)?\(\s*["']([\w-]+)["']`)
	gradleDescPattern     = regexp.MustCompile(`description\s*=\s*["']([^"']*)["']`)
	gradleAppPattern      = regexp.MustCompile(`(?m)(?:id\s*\(?\s*["']application["']|apply\s+plugin\s*:\s*["']application["']|^\s*application\s*$)`)
)

var gradleStandard = []struct {
	name string
	desc string
}{
	{"build", "Assemble and test the project"},
	{"clean", "Delete the build directory"},
	{"test", "Run the unit tests"},
	{"assemble", "Assemble the outputs"},
	{"check", "Run all checks"},
}

// Discover finds Gradle build scripts. Nothing is reported unless the
// workspace contains JVM sources.
func (s *GradleSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	if !ws.HasExtension(jvmExtensions...) {
		return nil, nil
	}
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *GradleSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	gradle := findWrapper(ws, filepath.Dir(path), "gradlew")
	if gradle == "" {
		gradle = "gradle"
	}

	c := newCollector(s.Type(), path)
	for _, std := range gradleStandard {
		c.add(std.name, gradle+" "+std.name).Description = std.desc
	}
	if gradleAppPattern.Match(data) {
		c.add("run", gradle+" run").Description = "Run the application"
	}

	var (
		current   *task.Task
		depth     int
		described bool
	)
	for _, line := range scan.Lines(data) {
		name := ""
		if m := gradleTaskPattern.FindStringSubmatch(line); m != nil {
			name = m[1]
		} else if m := gradleRegisterPattern.FindStringSubmatch(line); m != nil {
			name = m[1]
		}

		if name != "" {
			// A declared standard task keeps its entry but may describe it.
			current = c.add(name, gradle+" "+name)
			if current == nil {
				current = c.get(name)
			}
			depth = 0
			described = false
		}

		if current != nil {
			if m := gradleDescPattern.FindStringSubmatch(line); m != nil && !described {
				current.Description = m[1]
				described = true
			}
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			if depth <= 0 && (name == "" || strings.Contains(line, "}")) {
				current = nil
			}
		}
	}
	return c.result(), nil
}
