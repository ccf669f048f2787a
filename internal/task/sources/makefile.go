package sources

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// MakefileSource discovers tasks from Makefiles.
type MakefileSource struct{}

// NewMakefileSource creates a new Makefile source.
func NewMakefileSource() *MakefileSource {
	return &MakefileSource{}
}

// Type returns the task type.
func (s *MakefileSource) Type() task.Type {
	return task.TypeMake
}

// Patterns returns the file patterns this source handles.
func (s *MakefileSource) Patterns() []string {
	return []string{
		"Makefile",
		"makefile",
		"GNUmakefile",
		"*.mk",
	}
}

// Discover finds targets in Makefiles.
func (s *MakefileSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *MakefileSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	prefix := "make "
	switch filepath.Base(path) {
	case "Makefile", "makefile", "GNUmakefile":
	default:
		prefix = "make -f " + scan.ShellQuote(filepath.Base(path)) + " "
	}

	c := newCollector(s.Type(), path)
	comments := scan.NewCommentTracker("##", "#")
	comments.KeepAcrossBlank = true

	for _, line := range scan.Lines(data) {
		// Recipe lines
		if strings.HasPrefix(line, "\t") {
			comments.Reset()
			continue
		}
		if comments.Comment(line) {
			continue
		}

		targets, inline, ok := parseMakeRule(line)
		if !ok {
			comments.Reset()
			continue
		}

		desc := inline
		if pending := comments.Take(); desc == "" {
			desc = pending
		}
		for _, target := range targets {
			if t := c.add(target, prefix+target); t != nil {
				t.Description = desc
			}
		}
	}
	return c.result(), nil
}

// parseMakeRule splits a rule line into its runnable targets and an inline
// "## description". Variable assignments are not rules.
func parseMakeRule(line string) (targets []string, inline string, ok bool) {
	if line == "" || line[0] == ' ' || line[0] == '\t' || line[0] == '#' {
		return nil, "", false
	}

	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return nil, "", false
	}
	head := line[:colon]
	rest := line[colon+1:]

	// X := y, X ::= y, X ?= y, X += y, X = a:b
	if strings.ContainsAny(head, "=?+") {
		return nil, "", false
	}
	rest = strings.TrimPrefix(rest, ":")
	if strings.HasPrefix(rest, "=") || strings.HasPrefix(rest, ":=") {
		return nil, "", false
	}
	// Target specific variable: target: VAR = value
	if eq := strings.IndexByte(rest, '='); eq >= 0 && !strings.Contains(rest[:eq], "##") {
		return nil, "", false
	}

	names := strings.Fields(head)
	if len(names) == 0 || isMakeDirective(names[0]) {
		return nil, "", false
	}

	if i := strings.Index(rest, "##"); i >= 0 {
		inline = strings.TrimSpace(rest[i+2:])
	}

	for _, name := range names {
		switch {
		case strings.HasPrefix(name, "."):
			// .PHONY, .DEFAULT_GOAL and internal helpers
		case strings.Contains(name, "%"):
			// pattern rule
		case strings.Contains(name, "$"):
			// variable reference
		default:
			targets = append(targets, name)
		}
	}
	return targets, inline, len(targets) > 0
}

func isMakeDirective(word string) bool {
	switch word {
	case "export", "override", "define", "include", "-include", "sinclude",
		"ifeq", "ifneq", "ifdef", "ifndef", "else", "endif", "vpath", "unexport":
		return true
	}
	return false
}
