package config

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/tree"
	"github.com/dshills/tasktree/internal/watch"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	dialects   = []string{DialectPatterns, DialectStore}
)

// Validate checks every setting. It returns the failures joined with
// errors.Join; each is a *ValidationError.
func (c *Config) Validate() error {
	var errs []error
	add := func(path, msg string, value any, code Code) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value, Code: code})
	}

	for _, p := range c.Discovery.Exclude {
		if !doublestar.ValidatePattern(p) {
			add("discovery.exclude", "invalid glob", p, CodeBadFormat)
		}
	}
	for _, s := range c.Discovery.Sources {
		if _, ok := task.ParseType(s); !ok {
			add("discovery.sources", "unknown source", s, CodeNotAllowed)
		}
	}

	if !slices.Contains(dialects, c.Tags.Dialect) {
		add("tags.dialect", "must be one of "+strings.Join(dialects, ", "), c.Tags.Dialect, CodeNotAllowed)
	}
	if c.Tags.Dialect == DialectPatterns && c.Tags.File == "" {
		add("tags.file", "must not be empty", nil, CodeBadFormat)
	}
	if c.Tags.Dialect == DialectStore && c.Tags.Store == "" {
		add("tags.store", "must not be empty", nil, CodeBadFormat)
	}

	if _, err := tree.ParseSortOrder(c.Tree.Sort); err != nil {
		add("tree.sort", "must be one of folder, name, type", c.Tree.Sort, CodeNotAllowed)
	}

	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		add("watch.debounce", "invalid duration", c.Watch.Debounce, CodeWrongType)
	} else if d <= 0 {
		add("watch.debounce", "must be positive", c.Watch.Debounce, CodeOutOfRange)
	}
	if c.Watch.RefreshSchedule != "" {
		if _, err := watch.ParseSchedule(c.Watch.RefreshSchedule); err != nil {
			add("watch.refresh_schedule", "invalid schedule", c.Watch.RefreshSchedule, CodeBadFormat)
		}
	}

	if c.Server.Addr == "" {
		add("server.addr", "must not be empty", nil, CodeBadFormat)
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		add("log.level", "must be one of "+strings.Join(logLevels, ", "), c.Log.Level, CodeNotAllowed)
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		add("log.format", "must be one of "+strings.Join(logFormats, ", "), c.Log.Format, CodeNotAllowed)
	}

	return errors.Join(errs...)
}
