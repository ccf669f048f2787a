package sources

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// PowerShellSource discovers PowerShell scripts and batch files.
type PowerShellSource struct{}

// NewPowerShellSource creates a new PowerShell/batch source.
func NewPowerShellSource() *PowerShellSource {
	return &PowerShellSource{}
}

// Type returns the task type.
func (s *PowerShellSource) Type() task.Type {
	return task.TypePowerShell
}

// Patterns returns the file patterns this source handles.
func (s *PowerShellSource) Patterns() []string {
	return []string{"*.ps1", "*.bat", "*.cmd"}
}

var (
	psParamBlock  = regexp.MustCompile(`(?i)\bparam\s*\(`)
	psValidateSet = regexp.MustCompile(`(?i)\[ValidateSet\(([^)]*)\)\]`)
	psVariable    = regexp.MustCompile(`\$(\w+)(?:\s*=\s*(.+?))?\s*$`)
)

// Discover finds scripts.
func (s *PowerShellSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *PowerShellSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	lines := scan.Lines(data)
	name := filepath.Base(path)
	c := newCollector(s.Type(), path)

	if strings.EqualFold(filepath.Ext(path), ".ps1") {
		t := c.add(name, "pwsh -File "+scan.QuotePath(path))
		t.Description = psSynopsis(lines)
		if t.Description == "" {
			t.Description = scan.HeaderComment(lines, "#")
		}
		t.Params = psParams(string(data))
		return c.result(), nil
	}

	t := c.add(name, "cmd /c "+scan.QuotePath(path))
	t.Description = batchDescription(lines)
	return c.result(), nil
}

// psSynopsis returns the .SYNOPSIS text from comment based help.
func psSynopsis(lines []string) string {
	inHelp := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "<#") {
			inHelp = true
		}
		if !inHelp {
			continue
		}
		if strings.EqualFold(strings.TrimPrefix(trimmed, "<#"), ".SYNOPSIS") ||
			strings.EqualFold(trimmed, ".SYNOPSIS") {
			for _, next := range lines[i+1:] {
				next = strings.TrimSpace(next)
				if next == "" {
					continue
				}
				if strings.HasPrefix(next, ".") || strings.HasPrefix(next, "#>") {
					return ""
				}
				return next
			}
		}
		if strings.Contains(trimmed, "#>") {
			inHelp = false
		}
	}
	return ""
}

// psParams reads the script level param(...) block.
func psParams(src string) []task.Param {
	loc := psParamBlock.FindStringIndex(src)
	if loc == nil {
		return nil
	}
	body, ok := balanced(src[loc[1]-1:], '(', ')')
	if !ok {
		return nil
	}

	var params []task.Param
	for _, entry := range scan.SplitArgs(body) {
		var desc string
		var code []string
		for _, l := range strings.Split(entry, "\n") {
			l = strings.TrimSpace(l)
			if text, ok := scan.StripComment(l, "#"); ok {
				desc = text
				continue
			}
			if l != "" {
				code = append(code, l)
			}
		}
		joined := strings.Join(code, " ")
		m := psVariable.FindStringSubmatch(joined)
		if m == nil {
			continue
		}
		p := task.Param{
			Name:        m[1],
			Description: desc,
			Default:     scan.Unquote(m[2]),
			Format:      task.FormatDash,
		}
		if vs := psValidateSet.FindStringSubmatch(joined); vs != nil {
			for _, o := range scan.SplitArgs(vs[1]) {
				p.Options = append(p.Options, scan.Unquote(o))
			}
		}
		params = append(params, p)
	}
	return params
}

// balanced returns the text between s[0] (an open rune) and its matching
// close, ignoring quoted sections.
func balanced(s string, open, close byte) (string, bool) {
	if s == "" || s[0] != open {
		return "", false
	}
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return s[1:i], true
			}
		}
	}
	return "", false
}

// batchDescription returns the first REM or :: comment, skipping echo off.
func batchDescription(lines []string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case trimmed == "", lower == "@echo off", lower == "echo off":
			continue
		case strings.HasPrefix(trimmed, "::"):
			if text := strings.TrimSpace(trimmed[2:]); text != "" {
				return text
			}
		case lower == "rem", strings.HasPrefix(lower, "rem "), strings.HasPrefix(lower, "@rem "):
			_, text, _ := strings.Cut(trimmed, " ")
			if text = strings.TrimSpace(text); text != "" {
				return text
			}
		default:
			return ""
		}
	}
	return ""
}
