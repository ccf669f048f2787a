package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/tree"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root, WithEnv(noEnv))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want empty", cfg.File)
	}
	if !slices.Equal(cfg.Discovery.Exclude, task.DefaultExcludes) {
		t.Errorf("Exclude = %v", cfg.Discovery.Exclude)
	}
	if cfg.Tags.Dialect != DialectPatterns || cfg.SortOrder() != tree.SortFolder {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.DebounceDuration() != 300*time.Millisecond {
		t.Errorf("DebounceDuration() = %v", cfg.DebounceDuration())
	}
	if got := cfg.TagFilePath(root); got != filepath.Join(root, ".tasktree", "tags.json") {
		t.Errorf("TagFilePath() = %q", got)
	}
	if got := cfg.StorePath(root); got != filepath.Join(root, ".tasktree", "tags.db") {
		t.Errorf("StorePath() = %q", got)
	}
}

func TestLoad_Layers(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, `
[discovery]
exclude = ["**/vendor/**"]
sources = ["npm", "make"]

[tags]
dialect = "store"
store = "/abs/tags.db"

[tree]
sort = "name"

[watch]
debounce = "1s"
refresh_schedule = "@every 5m"

[log]
level = "debug"
`)

	cfg, err := Load(root, WithEnv(envOf(map[string]string{
		"TASKTREE_TREE_SORT":   "type",
		"TASKTREE_LOG_FORMAT":  "json",
		"TASKTREE_SERVER_ADDR": ":9000",
	})))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
	if !slices.Equal(cfg.Discovery.Exclude, []string{"**/vendor/**"}) {
		t.Errorf("Exclude = %v", cfg.Discovery.Exclude)
	}
	if !slices.Equal(cfg.Discovery.Sources, []string{"npm", "make"}) {
		t.Errorf("Sources = %v", cfg.Discovery.Sources)
	}
	if cfg.Tags.Dialect != DialectStore || cfg.StorePath(root) != "/abs/tags.db" {
		t.Errorf("Tags = %+v", cfg.Tags)
	}
	// Environment beats the file.
	if cfg.SortOrder() != tree.SortType {
		t.Errorf("SortOrder() = %v", cfg.SortOrder())
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" || cfg.Server.Addr != ":9000" {
		t.Errorf("Log = %+v, Server = %+v", cfg.Log, cfg.Server)
	}
	if cfg.DebounceDuration() != time.Second || cfg.Watch.RefreshSchedule != "@every 5m" {
		t.Errorf("Watch = %+v", cfg.Watch)
	}
	// Untouched defaults survive the merge.
	if cfg.Tags.File != ".tasktree/tags.json" {
		t.Errorf("Tags.File = %q", cfg.Tags.File)
	}
}

func TestLoad_EnvList(t *testing.T) {
	cfg, err := Load(t.TempDir(), WithEnv(envOf(map[string]string{
		"TASKTREE_EXCLUDE": "**/dist/**,**/tmp/**",
	})))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(cfg.Discovery.Exclude, []string{"**/dist/**", "**/tmp/**"}) {
		t.Errorf("Exclude = %v", cfg.Discovery.Exclude)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(t.TempDir(), WithFile("/does/not/exist.toml"), WithEnv(noEnv))
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("error = %v, want ErrFileNotFound", err)
	}
}

func TestLoad_Malformed(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[tags\ndialect = 1\n")

	_, err := Load(root, WithEnv(noEnv))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestLoad_UnknownSetting(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[tags]\nflavour = \"x\"\n")

	_, err := Load(root, WithEnv(noEnv))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != CodeUnknownSetting || verr.Path != "tags.flavour" {
		t.Fatalf("error = %v, want unknown tags.flavour", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		path   string
		code   Code
	}{
		{"dialect", func(c *Config) { c.Tags.Dialect = "sql" }, "tags.dialect", CodeNotAllowed},
		{"sort", func(c *Config) { c.Tree.Sort = "size" }, "tree.sort", CodeNotAllowed},
		{"level", func(c *Config) { c.Log.Level = "loud" }, "log.level", CodeNotAllowed},
		{"format", func(c *Config) { c.Log.Format = "xml" }, "log.format", CodeNotAllowed},
		{"debounce", func(c *Config) { c.Watch.Debounce = "soon" }, "watch.debounce", CodeWrongType},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = "-1s" }, "watch.debounce", CodeOutOfRange},
		{"schedule", func(c *Config) { c.Watch.RefreshSchedule = "sometimes" }, "watch.refresh_schedule", CodeBadFormat},
		{"glob", func(c *Config) { c.Discovery.Exclude = []string{"[unclosed"} }, "discovery.exclude", CodeBadFormat},
		{"source", func(c *Config) { c.Discovery.Sources = []string{"bazel"} }, "discovery.sources", CodeNotAllowed},
		{"addr", func(c *Config) { c.Server.Addr = "" }, "server.addr", CodeBadFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Path != tt.path || verr.Code != tt.code {
				t.Errorf("got %s/%v, want %s/%v", verr.Path, verr.Code, tt.path, tt.code)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}
