package sources

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// PythonSource discovers runnable Python scripts.
type PythonSource struct{}

// NewPythonSource creates a new Python script source.
func NewPythonSource() *PythonSource {
	return &PythonSource{}
}

// Type returns the task type.
func (s *PythonSource) Type() task.Type {
	return task.TypePython
}

// Patterns returns the file patterns this source handles.
func (s *PythonSource) Patterns() []string {
	return []string{"*.py"}
}

var (
	pyMainGuard   = regexp.MustCompile(`(?m)^if\s+__name__\s*==\s*["']__main__["']\s*:`)
	pyAddArgument = regexp.MustCompile(`\.add_argument\s*\(`)
	pyKeyword     = regexp.MustCompile(`^(\w+)\s*=\s*(.+)$`)
)

// Discover finds Python scripts with a shebang or __main__ guard.
func (s *PythonSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *PythonSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	lines := scan.Lines(data)
	// Library modules are not tasks.
	if !strings.HasPrefix(lines[0], "#!") && !pyMainGuard.Match(data) {
		return nil, nil
	}

	c := newCollector(s.Type(), path)
	t := c.add(filepath.Base(path), "python3 "+scan.QuotePath(path))
	t.Description = pyDocstring(lines)
	if t.Description == "" {
		t.Description = scan.HeaderComment(lines, "#")
	}
	t.Params = pyArguments(string(data))
	return c.result(), nil
}

// pyDocstring returns the first line of the module docstring.
func pyDocstring(lines []string) string {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		trimmed = strings.TrimLeft(trimmed, "rRuU")
		var quote string
		switch {
		case strings.HasPrefix(trimmed, `"""`):
			quote = `"""`
		case strings.HasPrefix(trimmed, `'''`):
			quote = `'''`
		default:
			return ""
		}
		rest := strings.TrimPrefix(trimmed, quote)
		if end := strings.Index(rest, quote); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		if text := strings.TrimSpace(rest); text != "" {
			return text
		}
		for _, next := range lines[i+1:] {
			next = strings.TrimSpace(next)
			if idx := strings.Index(next, quote); idx >= 0 {
				return strings.TrimSpace(next[:idx])
			}
			if next != "" {
				return next
			}
		}
		return ""
	}
	return ""
}

// pyArguments reads argparse add_argument calls.
func pyArguments(src string) []task.Param {
	var params []task.Param
	seen := make(map[string]bool)

	for _, loc := range pyAddArgument.FindAllStringIndex(src, -1) {
		body, ok := balanced(src[loc[1]-1:], '(', ')')
		if !ok {
			continue
		}

		var long, short, positional string
		p := task.Param{}
		for _, arg := range scan.SplitArgs(body) {
			if m := pyKeyword.FindStringSubmatch(arg); m != nil && !strings.HasPrefix(arg, `"`) && !strings.HasPrefix(arg, "'") {
				value := strings.TrimSpace(m[2])
				switch m[1] {
				case "help":
					p.Description = pyString(value)
				case "default":
					if value != "None" {
						p.Default = pyString(value)
					}
				case "choices":
					for _, o := range scan.SplitArgs(strings.Trim(value, "[]()")) {
						p.Options = append(p.Options, pyString(o))
					}
				}
				continue
			}
			name := pyString(arg)
			switch {
			case strings.HasPrefix(name, "--"):
				long = strings.TrimPrefix(name, "--")
			case strings.HasPrefix(name, "-"):
				short = strings.TrimPrefix(name, "-")
			default:
				positional = name
			}
		}

		switch {
		case long != "":
			p.Name, p.Format = long, task.FormatFlag
		case short != "":
			p.Name, p.Format = short, task.FormatDash
		case positional != "":
			p.Name = positional
		default:
			continue
		}
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		params = append(params, p)
	}
	return params
}

// pyString unquotes a Python string literal, dropping f/r/b prefixes.
func pyString(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 2 && strings.ContainsRune("rRbBfFuU", rune(s[0])) && (s[1] == '"' || s[1] == '\'') {
		s = s[1:]
	}
	return scan.Unquote(s)
}
