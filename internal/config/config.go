// Package config loads tasktree settings.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	3. TASKTREE_* environment variables
//	2. TOML file (--config, or <workspace>/.tasktree.toml)
//	1. Built-in defaults
//
// A missing default config file is not an error; a malformed one is.
//
// # Basic Usage
//
//	cfg, err := config.Load(root, config.WithFile(path))
//	if err != nil {
//	    return err
//	}
//	excludes := cfg.Discovery.Exclude
package config

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/tasktree/internal/config/loader"
	"github.com/dshills/tasktree/internal/tags"
	"github.com/dshills/tasktree/internal/tags/store"
	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/sources"
	"github.com/dshills/tasktree/internal/tree"
)

// DefaultFile is the workspace relative config file name.
const DefaultFile = ".tasktree.toml"

// Tag dialects.
const (
	DialectPatterns = "patterns"
	DialectStore    = "store"
)

// Config holds every tasktree setting.
type Config struct {
	Discovery DiscoveryConfig `toml:"discovery"`
	Tags      TagsConfig      `toml:"tags"`
	Tree      TreeConfig      `toml:"tree"`
	Watch     WatchConfig     `toml:"watch"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`

	// File is the config file that was read, or "".
	File string `toml:"-"`
}

// DiscoveryConfig controls which files are scanned.
type DiscoveryConfig struct {
	// Exclude lists doublestar globs matched against workspace relative paths.
	Exclude []string `toml:"exclude"`
	// Sources limits discovery to these task types. Empty means all.
	Sources []string `toml:"sources"`
	// LuaDir holds user Lua discovery scripts. Relative to the workspace.
	LuaDir string `toml:"lua_dir"`
}

// TagsConfig selects the tag dialect and where it is stored.
type TagsConfig struct {
	Dialect string `toml:"dialect"`
	File    string `toml:"file"`
	Store   string `toml:"store"`
}

// TreeConfig controls the tree view.
type TreeConfig struct {
	Sort string `toml:"sort"`
}

// WatchConfig controls file watching and scheduled refreshes.
type WatchConfig struct {
	Debounce        string `toml:"debounce"`
	RefreshSchedule string `toml:"refresh_schedule"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			Exclude: slices.Clone(task.DefaultExcludes),
			LuaDir:  sources.DefaultLuaDir,
		},
		Tags: TagsConfig{
			Dialect: DialectPatterns,
			File:    tags.DefaultFile,
			Store:   store.DefaultPath,
		},
		Tree: TreeConfig{Sort: string(tree.SortFolder)},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		Server: ServerConfig{Addr: "127.0.0.1:7417"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// EnvMapping lists the environment variables Load reads.
var EnvMapping = map[string]loader.EnvVar{
	"TASKTREE_EXCLUDE":          {Path: "discovery.exclude", Kind: loader.KindList},
	"TASKTREE_SOURCES":          {Path: "discovery.sources", Kind: loader.KindList},
	"TASKTREE_LUA_DIR":          {Path: "discovery.lua_dir"},
	"TASKTREE_TAGS_DIALECT":     {Path: "tags.dialect"},
	"TASKTREE_TAGS_FILE":        {Path: "tags.file"},
	"TASKTREE_TAGS_STORE":       {Path: "tags.store"},
	"TASKTREE_TREE_SORT":        {Path: "tree.sort"},
	"TASKTREE_WATCH_DEBOUNCE":   {Path: "watch.debounce"},
	"TASKTREE_REFRESH_SCHEDULE": {Path: "watch.refresh_schedule"},
	"TASKTREE_SERVER_ADDR":      {Path: "server.addr"},
	"TASKTREE_LOG_LEVEL":        {Path: "log.level"},
	"TASKTREE_LOG_FORMAT":       {Path: "log.format"},
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	file     string
	explicit bool
	read     loader.ReadFunc
	lookup   func(string) (string, bool)
}

// WithFile reads path instead of the default file. Unlike the default
// file, an explicit file must exist.
func WithFile(path string) Option {
	return func(o *loadOptions) {
		if path != "" {
			o.file = path
			o.explicit = true
		}
	}
}

// WithReadFile replaces os.ReadFile for the config file.
func WithReadFile(read loader.ReadFunc) Option {
	return func(o *loadOptions) {
		o.read = read
	}
}

// WithEnv replaces os.LookupEnv.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(o *loadOptions) {
		o.lookup = lookup
	}
}

// Load merges defaults, the config file and the environment for the
// workspace at root, then validates the result.
func Load(root string, opts ...Option) (*Config, error) {
	o := loadOptions{file: filepath.Join(root, DefaultFile)}
	for _, opt := range opts {
		opt(&o)
	}

	defaults, err := toMap(Default())
	if err != nil {
		return nil, err
	}
	env := loader.NewEnv(EnvMapping)
	if o.lookup != nil {
		env.WithLookup(o.lookup)
	}

	merged, present, err := loader.Stack(defaults, loader.NewFile(o.file, o.read), env)
	if err != nil {
		return nil, err
	}
	fromFile := slices.Contains(present, o.file)
	if o.explicit && !fromFile {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, o.file)
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if fromFile {
		cfg.File = o.file
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	return loader.Parse("<defaults>", data)
}

// decode converts the merged layers into a Config, rejecting unknown keys.
func decode(m map[string]any) (*Config, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			var errs []error
			for _, e := range strict.Errors {
				errs = append(errs, &ValidationError{
					Path:    strings.Join(e.Key(), "."),
					Message: "unknown setting",
					Code:    CodeUnknownSetting,
				})
			}
			return nil, errors.Join(errs...)
		}
		return nil, &ValidationError{Message: err.Error(), Code: CodeWrongType}
	}
	return &cfg, nil
}

// DebounceDuration returns the parsed watch debounce.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0
	}
	return d
}

// SortOrder returns the parsed tree sort order.
func (c *Config) SortOrder() tree.SortOrder {
	order, err := tree.ParseSortOrder(c.Tree.Sort)
	if err != nil {
		return tree.SortFolder
	}
	return order
}

// TagFilePath returns the tag definition file resolved against root.
func (c *Config) TagFilePath(root string) string {
	return resolve(root, c.Tags.File)
}

// StorePath returns the junction store path resolved against root.
func (c *Config) StorePath(root string) string {
	if c.Tags.Store == ":memory:" {
		return c.Tags.Store
	}
	return resolve(root, c.Tags.Store)
}

// LuaDirRel returns the Lua script directory relative to root, the form
// discovery patterns need. A directory outside root yields "".
func (c *Config) LuaDirRel(root string) string {
	if c.Discovery.LuaDir == "" {
		return ""
	}
	rel := task.RelPath(root, resolve(root, c.Discovery.LuaDir))
	if filepath.IsAbs(filepath.FromSlash(rel)) {
		return ""
	}
	return rel
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, filepath.FromSlash(p))
}
