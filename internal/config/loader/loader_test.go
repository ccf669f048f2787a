package loader

import (
	"errors"
	"io/fs"
	"slices"
	"testing"
)

// memFiles serves files from a map.
type memFiles map[string]string

func (m memFiles) read(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(data), nil
}

// staticLayer is a fixed layer.
type staticLayer struct {
	name string
	m    map[string]any
	err  error
}

func (l staticLayer) Name() string                  { return l.name }
func (l staticLayer) Load() (map[string]any, error) { return l.m, l.err }

func TestFile_Load(t *testing.T) {
	files := memFiles{"/w/.tasktree.toml": `
[discovery]
exclude = ["**/vendor/**"]

[tags]
dialect = "store"
`}

	m, err := NewFile("/w/.tasktree.toml", files.read).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tags, ok := m["tags"].(map[string]any)
	if !ok || tags["dialect"] != "store" {
		t.Errorf("tags = %v", m["tags"])
	}
	discovery := m["discovery"].(map[string]any)
	if ex, ok := discovery["exclude"].([]any); !ok || len(ex) != 1 || ex[0] != "**/vendor/**" {
		t.Errorf("exclude = %v", discovery["exclude"])
	}
}

func TestFile_Missing(t *testing.T) {
	m, err := NewFile("/nope.toml", memFiles{}.read).Load()
	if err != nil || m != nil {
		t.Errorf("Load() = %v, %v; want nil, nil", m, err)
	}
}

func TestFile_Empty(t *testing.T) {
	m, err := NewFile("/empty.toml", memFiles{"/empty.toml": ""}.read).Load()
	if err != nil || m == nil {
		t.Errorf("Load() = %v, %v; want an empty present layer", m, err)
	}
}

func TestFile_ParseError(t *testing.T) {
	files := memFiles{"/bad.toml": "[tags]\ndialect = \n"}

	_, err := NewFile("/bad.toml", files.read).Load()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if perr.File != "/bad.toml" || perr.Line == 0 {
		t.Errorf("ParseError = %+v", perr)
	}
}

func TestMerge(t *testing.T) {
	dst := map[string]any{
		"tags": map[string]any{"dialect": "patterns", "file": "a.json"},
		"log":  map[string]any{"level": "info"},
	}
	src := map[string]any{
		"tags":   map[string]any{"dialect": "store"},
		"server": map[string]any{"addr": ":1"},
		"log":    "flat",
	}
	got := Merge(dst, src)

	tags := got["tags"].(map[string]any)
	if tags["dialect"] != "store" || tags["file"] != "a.json" {
		t.Errorf("tags = %v", tags)
	}
	if got["log"] != "flat" || got["server"] == nil {
		t.Errorf("merged = %v", got)
	}
}

func TestStack(t *testing.T) {
	base := map[string]any{"log": map[string]any{"level": "info", "format": "text"}}
	layers := []Layer{
		staticLayer{name: "file", m: map[string]any{"log": map[string]any{"level": "debug"}}},
		staticLayer{name: "absent"},
		staticLayer{name: "env", m: map[string]any{"log": map[string]any{"format": "json"}}},
	}

	merged, present, err := Stack(base, layers...)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(present, []string{"file", "env"}) {
		t.Errorf("present = %v", present)
	}
	log := merged["log"].(map[string]any)
	if log["level"] != "debug" || log["format"] != "json" {
		t.Errorf("log = %v", log)
	}

	boom := errors.New("boom")
	if _, _, err := Stack(base, staticLayer{name: "bad", err: boom}); !errors.Is(err, boom) {
		t.Errorf("Stack() error = %v, want boom", err)
	}
}

func TestEnv(t *testing.T) {
	vars := map[string]string{
		"TASKTREE_TAGS_DIALECT": "store",
		"TASKTREE_EXCLUDE":      " **/dist/** , ,**/tmp/**",
		"TASKTREE_RUN_ID":       "ignored",
	}
	e := NewEnv(map[string]EnvVar{
		"TASKTREE_TAGS_DIALECT": {Path: "tags.dialect"},
		"TASKTREE_EXCLUDE":      {Path: "discovery.exclude", Kind: KindList},
		"TASKTREE_LOG_LEVEL":    {Path: "log.level"},
	}).WithLookup(func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})

	m, err := e.Load()
	if err != nil {
		t.Fatal(err)
	}
	if m["tags"].(map[string]any)["dialect"] != "store" {
		t.Errorf("tags = %v", m["tags"])
	}
	ex := m["discovery"].(map[string]any)["exclude"].([]any)
	if !slices.Equal(ex, []any{"**/dist/**", "**/tmp/**"}) {
		t.Errorf("exclude = %v", ex)
	}
	if _, ok := m["log"]; ok {
		t.Error("unset variable produced a value")
	}
	if len(m) != 2 {
		t.Errorf("env layer = %v", m)
	}

	none := NewEnv(map[string]EnvVar{"X": {Path: "a.b"}}).WithLookup(func(string) (string, bool) { return "", false })
	if m, _ := none.Load(); m != nil {
		t.Errorf("Load() with nothing set = %v, want nil", m)
	}
}

func TestSet(t *testing.T) {
	m := map[string]any{"a": "scalar"}
	set(m, "a.b.c", 1)
	set(m, "a.b.d", 2)
	set(m, "top", 3)

	b := m["a"].(map[string]any)["b"].(map[string]any)
	if b["c"] != 1 || b["d"] != 2 || m["top"] != 3 {
		t.Errorf("m = %v", m)
	}
}
