package sources

import (
	"context"
	"regexp"
	"strings"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// RakeSource discovers tasks from Rakefiles.
type RakeSource struct{}

// NewRakeSource creates a new Rakefile source.
func NewRakeSource() *RakeSource {
	return &RakeSource{}
}

// Type returns the task type.
func (s *RakeSource) Type() task.Type {
	return task.TypeRake
}

// Patterns returns the file patterns this source handles.
func (s *RakeSource) Patterns() []string {
	return []string{"Rakefile", "rakefile", "Rakefile.rb", "*.rake"}
}

var (
	rakeDescPattern      = regexp.MustCompile(`^desc\s+(?:"([^"]*)"|'([^']*)')`)
	rakeNamespacePattern = regexp.MustCompile(`^namespace\s+(?::([\w-]+)|["']([\w:-]+)["'])\s*(?:do\b|\{)`)
	// task :name, task "name", task name: [...]
	rakeTaskPattern = regexp.MustCompile(`^(?:task|multitask)\s*\(?\s*(?::([\w-]+)|["']([\w:-]+)["']|([\w-]+):\s)`)
	rakeArgsPattern = regexp.MustCompile(`,\s*\[([^\]]*)\]`)
	rakeBlockOpen   = regexp.MustCompile(`(?:\bdo\s*(?:\|[^|]*\|)?\s*$)|^(?:if|unless|def|class|module|case|while|until|begin)\b`)
	rakeBlockEnd    = regexp.MustCompile(`^end\b`)
)

// Discover finds rake tasks.
func (s *RakeSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

// rakeBlock is one entry on the do/end nesting stack.
type rakeBlock struct {
	namespace string
}

func (s *RakeSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	c := newCollector(s.Type(), path)

	var (
		pending string
		stack   []rakeBlock
	)
	prefix := func() string {
		var parts []string
		for _, b := range stack {
			if b.namespace != "" {
				parts = append(parts, b.namespace)
			}
		}
		if len(parts) == 0 {
			return ""
		}
		return strings.Join(parts, ":") + ":"
	}

	for _, line := range scan.Lines(data) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if m := rakeDescPattern.FindStringSubmatch(trimmed); m != nil {
			pending = m[1] + m[2]
			continue
		}

		if m := rakeNamespacePattern.FindStringSubmatch(trimmed); m != nil {
			stack = append(stack, rakeBlock{namespace: m[1] + m[2]})
			continue
		}

		if m := rakeTaskPattern.FindStringSubmatch(trimmed); m != nil {
			name := prefix() + m[1] + m[2] + m[3]
			if t := c.add(name, "rake "+name); t != nil {
				t.Description = pending
				if args := rakeArgsPattern.FindStringSubmatch(trimmed); args != nil {
					t.Params = parseRakeArgs(args[1])
				}
			}
			pending = ""
		}

		switch {
		case rakeBlockEnd.MatchString(trimmed):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case rakeBlockOpen.MatchString(trimmed):
			stack = append(stack, rakeBlock{})
		}
	}
	return c.result(), nil
}

// parseRakeArgs reads ":a, :b" or "'a', 'b'" argument lists.
func parseRakeArgs(s string) []task.Param {
	var params []task.Param
	for _, arg := range scan.SplitArgs(s) {
		name := scan.Unquote(strings.TrimPrefix(arg, ":"))
		if name != "" {
			params = append(params, task.Param{Name: name, Format: task.FormatBracket})
		}
	}
	return params
}
