package tags

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/dshills/tasktree/internal/task"
)

// Option configures a resolver.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the resolver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// PatternResolver assigns tags by evaluating the patterns of a tag file
// against each task.
type PatternResolver struct {
	path   string
	logger *slog.Logger

	mu   sync.RWMutex
	defs *Definitions
}

// NewPatternResolver creates a resolver for the tag file at path.
func NewPatternResolver(path string, opts ...Option) *PatternResolver {
	o := buildOptions(opts)
	return &PatternResolver{
		path:   path,
		logger: o.logger,
		defs:   &Definitions{Patterns: map[string][]Pattern{}},
	}
}

// Path returns the tag file path.
func (r *PatternResolver) Path() string {
	return r.path
}

// Load reads the tag file. A missing or malformed file leaves no tags
// defined; it is logged and never returned as an error.
func (r *PatternResolver) Load(ctx context.Context) error {
	defs, err := LoadFile(r.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.logger.Debug("no tag file", "path", r.path)
		defs = &Definitions{Patterns: map[string][]Pattern{}}
	case err != nil:
		r.logger.Warn("ignoring tag file", "path", r.path, "error", err)
		defs = &Definitions{Patterns: map[string][]Pattern{}}
	}

	r.mu.Lock()
	r.defs = defs
	r.mu.Unlock()
	return nil
}

// ApplyTags recomputes the tags of every task from the loaded patterns.
func (r *PatternResolver) ApplyTags(tasks []*task.Task) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range tasks {
		var matched []string
		for _, name := range r.defs.Names {
			for _, p := range r.defs.Patterns[name] {
				if Match(p, t) {
					matched = append(matched, name)
					break
				}
			}
		}
		t.Tags = sortedUnique(matched)
	}
}

// TagNames returns the declared tags in sorted order.
func (r *PatternResolver) TagNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedUnique(r.defs.Names)
}

// Patterns returns the patterns declared for tag.
func (r *PatternResolver) Patterns(tag string) []Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.defs.Patterns[tag])
}
