// Package scan provides line scanning helpers shared by task sources.
package scan

import (
	"strings"
)

// CommentTracker captures the comment block directly above a definition.
//
// Sources feed every line through Comment. When a definition line is
// found they call Take to claim the pending description. Any other line
// should be passed to Reset.
type CommentTracker struct {
	prefixes []string

	// KeepAcrossBlank keeps the pending comment across blank lines.
	KeepAcrossBlank bool

	pending []string
}

// NewCommentTracker creates a tracker recognising the given line comment
// prefixes. Longer prefixes should come first ("##" before "#").
func NewCommentTracker(prefixes ...string) *CommentTracker {
	return &CommentTracker{prefixes: prefixes}
}

// Comment records line if it is a comment and reports whether it was.
// Blank lines return true when KeepAcrossBlank is set.
func (c *CommentTracker) Comment(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		if c.KeepAcrossBlank {
			return true
		}
		c.Reset()
		return true
	}
	text, ok := StripComment(trimmed, c.prefixes...)
	if !ok {
		return false
	}
	c.pending = append(c.pending, text)
	return true
}

// Take returns the pending description and clears it. The description is
// the last non-empty comment line, the one nearest the definition.
func (c *CommentTracker) Take() string {
	defer c.Reset()
	for i := len(c.pending) - 1; i >= 0; i-- {
		if c.pending[i] != "" {
			return c.pending[i]
		}
	}
	return ""
}

// Pending reports whether a comment is waiting to be claimed.
func (c *CommentTracker) Pending() bool {
	return len(c.pending) > 0
}

// Reset discards the pending comment.
func (c *CommentTracker) Reset() {
	c.pending = c.pending[:0]
}

// StripComment removes the first matching prefix and surrounding space.
func StripComment(trimmed string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(trimmed, p) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, p)), true
		}
	}
	return "", false
}

// HeaderComment returns the first meaningful line of a file's leading
// comment block. A shebang line is skipped, as are tool directives such as
// "shellcheck disable", editor modelines ("-*-") and "@" annotations.
// The scan stops at the first non-comment, non-blank line.
func HeaderComment(lines []string, prefixes ...string) string {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if i == 0 && strings.HasPrefix(trimmed, "#!") {
			continue
		}
		if trimmed == "" {
			continue
		}
		text, ok := StripComment(trimmed, prefixes...)
		if !ok {
			return ""
		}
		if text == "" || isDirective(text) {
			continue
		}
		return text
	}
	return ""
}

func isDirective(text string) bool {
	lower := strings.ToLower(text)
	return strings.HasPrefix(text, "@") ||
		strings.HasPrefix(lower, "shellcheck") ||
		strings.Contains(text, "-*-")
}
