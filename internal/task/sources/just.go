package sources

import (
	"context"
	"regexp"
	"strings"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// JustSource discovers recipes from justfiles.
type JustSource struct{}

// NewJustSource creates a new justfile source.
func NewJustSource() *JustSource {
	return &JustSource{}
}

// Type returns the task type.
func (s *JustSource) Type() task.Type {
	return task.TypeJust
}

// Patterns returns the file patterns this source handles.
func (s *JustSource) Patterns() []string {
	return []string{"justfile", "Justfile", ".justfile", "*.just"}
}

var (
	// [@]name, followed by params and the recipe colon
	justNamePattern      = regexp.MustCompile(`^@?([A-Za-z_][\w-]*)`)
	justAttributePattern = regexp.MustCompile(`^\[(.+)\]\s*$`)
	justDocPattern       = regexp.MustCompile(`doc\(\s*["'](.*?)["']\s*\)`)
)

// Discover finds just recipes.
func (s *JustSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *JustSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	c := newCollector(s.Type(), path)
	comments := scan.NewCommentTracker("#")

	var (
		private bool
		doc     string
	)
	reset := func() {
		comments.Reset()
		private = false
		doc = ""
	}

	for _, line := range scan.Lines(data) {
		trimmed := strings.TrimSpace(line)

		// Recipe bodies are indented.
		if line != trimmed && trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			reset()
			continue
		}
		if strings.HasPrefix(trimmed, "#!") {
			continue
		}
		if trimmed != "" && comments.Comment(trimmed) {
			continue
		}

		// Attributes sit between the comment and the recipe without
		// dropping the pending comment.
		if m := justAttributePattern.FindStringSubmatch(trimmed); m != nil {
			attrs := m[1]
			if strings.Contains(attrs, "private") {
				private = true
			}
			if d := justDocPattern.FindStringSubmatch(attrs); d != nil {
				doc = d[1]
			}
			continue
		}

		name, params, ok := parseJustRecipe(trimmed)
		if !ok || line != trimmed || isJustKeyword(name) {
			reset()
			continue
		}

		desc := comments.Take()
		if doc != "" {
			desc = doc
		}
		if private || strings.HasPrefix(name, "_") {
			reset()
			continue
		}

		if t := c.add(name, "just "+name); t != nil {
			t.Description = desc
			t.Params = parseJustParams(params)
		}
		reset()
	}
	return c.result(), nil
}

// parseJustRecipe splits "name params...: deps" into the name and the raw
// parameter list. The recipe colon is the first one outside quotes; a
// colon followed by "=" is an assignment.
func parseJustRecipe(line string) (name, params string, ok bool) {
	m := justNamePattern.FindStringSubmatchIndex(line)
	if m == nil {
		return "", "", false
	}
	name = line[m[2]:m[3]]
	rest := line[m[1]:]

	var quote rune
	for i, r := range rest {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ':':
			if strings.HasPrefix(rest[i+1:], "=") {
				return "", "", false
			}
			return name, rest[:i], true
		}
	}
	return "", "", false
}

func isJustKeyword(word string) bool {
	switch word {
	case "set", "alias", "export", "import", "mod":
		return true
	}
	return false
}

// parseJustParams reads "a b='x' +rest *opt $env" parameter lists.
func parseJustParams(s string) []task.Param {
	var params []task.Param
	for _, tok := range splitQuotedFields(s) {
		tok = strings.TrimLeft(tok, "+*$")
		if tok == "" {
			continue
		}
		name, def, _ := strings.Cut(tok, "=")
		p := task.Param{Name: strings.TrimSpace(name), Default: scan.Unquote(def)}
		if p.Name != "" {
			params = append(params, p)
		}
	}
	return params
}

// splitQuotedFields splits on whitespace outside single or double quotes.
func splitQuotedFields(s string) []string {
	var (
		fields []string
		cur    strings.Builder
		quote  rune
	)
	for _, r := range s {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == ' ' || r == '\t':
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}
