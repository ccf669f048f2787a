package tags

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/tasktree/internal/task/scan"
)

// DefaultFile is the tag definition file, relative to the workspace root.
const DefaultFile = ".tasktree/tags.json"

// Template is written by EnsureFile when no tag file exists.
const Template = `{
  "tags": {
    "build": ["*build*", "*compile*", "make:*"],
    "test": ["*test*", "*spec*"],
    "docker": [{"type": "docker"}, "**/docker/**"]
  }
}
`

// Definitions is a parsed tag file. Names keeps declaration order.
type Definitions struct {
	Names    []string
	Patterns map[string][]Pattern
}

// ParseDefinitions parses a tag file. Comments and trailing commas are
// accepted. Pattern entries that are neither strings nor objects are
// ignored.
func ParseDefinitions(data []byte) (*Definitions, error) {
	std, err := scan.JSONC(data)
	if err != nil {
		return nil, err
	}

	defs := &Definitions{Patterns: make(map[string][]Pattern)}
	tags := gjson.GetBytes(std, "tags")
	if !tags.Exists() {
		return defs, nil
	}
	if !tags.IsObject() {
		return nil, fmt.Errorf(`"tags" must be an object`)
	}

	tags.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if _, dup := defs.Patterns[name]; !dup {
			defs.Names = append(defs.Names, name)
		}
		patterns := defs.Patterns[name]
		value.ForEach(func(_, entry gjson.Result) bool {
			if p, ok := parsePattern(entry); ok {
				patterns = append(patterns, p)
			}
			return true
		})
		if patterns == nil {
			patterns = []Pattern{}
		}
		defs.Patterns[name] = patterns
		return true
	})
	return defs, nil
}

func parsePattern(entry gjson.Result) (Pattern, bool) {
	switch {
	case entry.Type == gjson.String:
		return NewGlobPattern(entry.String()), true
	case entry.IsObject():
		var p StructuredPattern
		field := func(name string) *string {
			if v := entry.Get(name); v.Exists() {
				s := v.String()
				return &s
			}
			return nil
		}
		p.ID = field("id")
		p.Type = field("type")
		p.Label = field("label")
		return p, true
	}
	return nil, false
}

// LoadFile reads and parses the tag file at path.
func LoadFile(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return defs, nil
}

// EnsureFile writes Template to path unless a file already exists there.
// It reports whether the file was created.
func EnsureFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := writeFile(path, []byte(Template)); err != nil {
		return false, err
	}
	return true, nil
}

// AddPattern appends a string pattern to tag in the file at path, creating
// the file from Template and the tag as needed. Other content is kept,
// except that comments do not survive the rewrite. Adding a pattern the
// tag already has is a no-op.
func AddPattern(path, tag, pattern string) error {
	if tag == "" || pattern == "" {
		return fmt.Errorf("tag and pattern must not be empty")
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		data = []byte(Template)
	case err != nil:
		return err
	}
	if !gjson.ValidBytes(data) {
		if data, err = scan.JSONC(data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	key := "tags." + escapePath(tag)
	existing := gjson.GetBytes(data, key)
	for _, v := range existing.Array() {
		if v.Type == gjson.String && v.String() == pattern {
			return nil
		}
	}

	if existing.IsArray() {
		data, err = sjson.SetBytes(data, key+".-1", pattern)
	} else {
		data, err = sjson.SetBytes(data, key, []string{pattern})
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return writeFile(path, pretty.Pretty(data))
}

// escapePath escapes gjson/sjson path syntax in a single key.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
