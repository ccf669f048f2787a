package tags

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/tasktree/internal/task"
)

// Pattern selects tasks for a tag. The variants are GlobPattern and
// StructuredPattern; Match switches over them.
type Pattern interface {
	// String renders the pattern the way it appears in the tag file.
	String() string

	pattern()
}

// GlobPattern is a plain string pattern. It matches a task whose ID equals
// Raw, whose "type:label" equals Raw ignoring case, or when Raw as a glob
// matches the label, file path, category or "type:label".
type GlobPattern struct {
	Raw string

	re *regexp.Regexp
}

// NewGlobPattern compiles raw.
func NewGlobPattern(raw string) GlobPattern {
	return GlobPattern{Raw: raw, re: CompileGlob(raw)}
}

func (p GlobPattern) String() string { return p.Raw }
func (GlobPattern) pattern()         {}

// StructuredPattern matches by exact ID, or by type and label equality.
// A nil field is a wildcard, but at least one field must be set.
type StructuredPattern struct {
	ID    *string `json:"id,omitempty"`
	Type  *string `json:"type,omitempty"`
	Label *string `json:"label,omitempty"`
}

func (p StructuredPattern) String() string {
	var parts []string
	if p.ID != nil {
		parts = append(parts, "id="+*p.ID)
	}
	if p.Type != nil {
		parts = append(parts, "type="+*p.Type)
	}
	if p.Label != nil {
		parts = append(parts, "label="+*p.Label)
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func (StructuredPattern) pattern() {}

// Match reports whether p selects t.
func Match(p Pattern, t *task.Task) bool {
	switch p := p.(type) {
	case GlobPattern:
		return matchGlob(p, t)
	case StructuredPattern:
		return matchStructured(p, t)
	default:
		return false
	}
}

func matchGlob(p GlobPattern, t *task.Task) bool {
	if p.Raw == "" {
		return false
	}
	if p.Raw == t.ID {
		return true
	}
	typeLabel := string(t.Type) + ":" + t.Label
	if strings.EqualFold(p.Raw, typeLabel) {
		return true
	}

	re := p.re
	if re == nil {
		re = CompileGlob(p.Raw)
	}
	for _, s := range []string{t.Label, filepath.ToSlash(t.FilePath), t.Category, typeLabel} {
		if s != "" && re.MatchString(s) {
			return true
		}
	}
	return false
}

func matchStructured(p StructuredPattern, t *task.Task) bool {
	if p.ID != nil {
		return *p.ID == t.ID
	}
	if p.Type == nil && p.Label == nil {
		return false
	}
	if p.Type != nil && *p.Type != string(t.Type) {
		return false
	}
	if p.Label != nil && *p.Label != t.Label {
		return false
	}
	return true
}
