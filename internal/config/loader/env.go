package loader

import (
	"os"
	"strings"
)

// Kind says how an environment value is converted.
type Kind uint8

const (
	// KindString keeps the value as is.
	KindString Kind = iota
	// KindList splits the value on commas, dropping blank items.
	KindList
)

// EnvVar maps one environment variable to a dotted setting path.
type EnvVar struct {
	Path string
	Kind Kind
}

// Env is the environment variable layer. Only mapped variables are read,
// so unrelated variables sharing the prefix are ignored. A variable set
// to "" still counts as set.
type Env struct {
	mapping map[string]EnvVar
	lookup  func(string) (string, bool)
}

// NewEnv returns an environment layer for mapping.
func NewEnv(mapping map[string]EnvVar) *Env {
	return &Env{mapping: mapping, lookup: os.LookupEnv}
}

// WithLookup replaces os.LookupEnv.
func (e *Env) WithLookup(lookup func(string) (string, bool)) *Env {
	e.lookup = lookup
	return e
}

// Name returns "environment".
func (e *Env) Name() string {
	return "environment"
}

// Load reads every mapped variable that is set. It returns nil when none
// are.
func (e *Env) Load() (map[string]any, error) {
	var m map[string]any
	for name, v := range e.mapping {
		raw, ok := e.lookup(name)
		if !ok {
			continue
		}
		if m == nil {
			m = make(map[string]any)
		}
		var value any = raw
		if v.Kind == KindList {
			value = splitList(raw)
		}
		set(m, v.Path, value)
	}
	return m, nil
}

func splitList(s string) []any {
	out := []any{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// set stores value at a dotted path, creating tables on the way.
func set(m map[string]any, path string, value any) {
	for {
		head, rest, nested := strings.Cut(path, ".")
		if !nested {
			m[head] = value
			return
		}
		next, ok := m[head].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[head] = next
		}
		m, path = next, rest
	}
}
