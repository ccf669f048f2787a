package sources

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// ShellSource discovers shell scripts.
type ShellSource struct{}

// NewShellSource creates a new shell script source.
func NewShellSource() *ShellSource {
	return &ShellSource{}
}

// Type returns the task type.
func (s *ShellSource) Type() task.Type {
	return task.TypeShell
}

// Patterns returns the file patterns this source handles.
func (s *ShellSource) Patterns() []string {
	return []string{"*.sh", "*.bash", "*.zsh"}
}

var (
	shellParamPattern   = regexp.MustCompile(`^#\s*@param\s+([A-Za-z_][\w-]*)\s*(.*?)\s*(?:\(default:\s*([^)]*)\))?\s*$`)
	shellOptionsPattern = regexp.MustCompile(`^#\s*@options\s+([A-Za-z_][\w-]*)\s+(.+)$`)
)

// Discover finds shell scripts in the workspace.
func (s *ShellSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *ShellSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	lines := scan.Lines(data)
	name := filepath.Base(path)

	shell := "bash"
	if strings.EqualFold(filepath.Ext(path), ".zsh") {
		shell = "zsh"
	}

	c := newCollector(s.Type(), path)
	t := c.add(name, shell+" "+scan.QuotePath(path))
	t.Description = scan.HeaderComment(lines, "#")
	t.Params = parseShellParams(lines)
	return c.result(), nil
}

// parseShellParams reads "# @param name description (default: value)" and
// "# @options name a|b|c" annotations.
func parseShellParams(lines []string) []task.Param {
	var params []task.Param
	index := make(map[string]int)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if m := shellParamPattern.FindStringSubmatch(line); m != nil {
			p := task.Param{Name: m[1], Description: m[2], Default: strings.TrimSpace(m[3])}
			if i, ok := index[p.Name]; ok {
				p.Options = params[i].Options
				params[i] = p
				continue
			}
			index[p.Name] = len(params)
			params = append(params, p)
			continue
		}
		if m := shellOptionsPattern.FindStringSubmatch(line); m != nil {
			var opts []string
			for _, o := range strings.Split(m[2], "|") {
				if o = strings.TrimSpace(o); o != "" {
					opts = append(opts, o)
				}
			}
			i, ok := index[m[1]]
			if !ok {
				i = len(params)
				index[m[1]] = i
				params = append(params, task.Param{Name: m[1]})
			}
			params[i].Options = opts
		}
	}
	return params
}
