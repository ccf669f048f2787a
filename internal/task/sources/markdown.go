package sources

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// MarkdownSource lists markdown documents so the host can preview them.
type MarkdownSource struct{}

// NewMarkdownSource creates a new markdown source.
func NewMarkdownSource() *MarkdownSource {
	return &MarkdownSource{}
}

// Type returns the task type.
func (s *MarkdownSource) Type() task.Type {
	return task.TypeMarkdown
}

// Patterns returns the file patterns this source handles.
func (s *MarkdownSource) Patterns() []string {
	return []string{"*.md"}
}

// Discover finds markdown files.
func (s *MarkdownSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *MarkdownSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	c := newCollector(s.Type(), path)
	t := c.add(filepath.Base(path), path)
	t.Description = scan.Truncate(markdownSummary(scan.Lines(data)), 80)
	return c.result(), nil
}

// markdownSummary returns the first heading, or the first content line
// when the document has no heading before its first paragraph.
func markdownSummary(lines []string) string {
	inFrontMatter := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if i == 0 && trimmed == "---" {
			inFrontMatter = true
			continue
		}
		if inFrontMatter {
			if trimmed == "---" {
				inFrontMatter = false
			}
			continue
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "<!--") {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.Trim(strings.TrimLeft(trimmed, "#"), " #"))
		}
		return trimmed
	}
	return ""
}
