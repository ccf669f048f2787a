package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// Source discovers every task of one type in a workspace.
//
// Implementations must skip unreadable or malformed files rather than
// failing; a returned error discards only this source's results.
type Source interface {
	// Type returns the task type this source produces.
	Type() Type

	// Patterns returns the file patterns this source reads.
	Patterns() []string

	// Discover finds tasks in the workspace.
	Discover(ctx context.Context, ws *Workspace) ([]*Task, error)
}

// DiscoveryResult holds the tasks found by one discovery pass, grouped by
// source type. It is rebuilt on every pass and never persisted.
type DiscoveryResult struct {
	// Root is the absolute workspace root that was scanned.
	Root string

	// BySource holds each source's tasks in discovery order.
	BySource map[Type][]*Task

	// Errors lists sources that failed and contributed nothing.
	Errors []*SourceError

	// Duration is how long discovery took.
	Duration time.Duration

	// Timestamp is when discovery completed.
	Timestamp time.Time
}

// Count returns the number of tasks found for a type.
func (r *DiscoveryResult) Count(t Type) int {
	return len(r.BySource[t])
}

// Total returns the number of tasks across all sources.
func (r *DiscoveryResult) Total() int {
	n := 0
	for _, tasks := range r.BySource {
		n += len(tasks)
	}
	return n
}

// Counts returns the per type task counts, omitting empty types.
func (r *DiscoveryResult) Counts() map[Type]int {
	counts := make(map[Type]int, len(r.BySource))
	for t, tasks := range r.BySource {
		if len(tasks) > 0 {
			counts[t] = len(tasks)
		}
	}
	return counts
}

// Flatten concatenates the result in source priority order.
func Flatten(r *DiscoveryResult) []*Task {
	if r == nil {
		return nil
	}
	out := make([]*Task, 0, r.Total())
	for _, t := range allTypes {
		out = append(out, r.BySource[t]...)
	}
	// Types registered outside the built-in list keep a stable tail order.
	var extra []Type
	for t := range r.BySource {
		if _, known := displayNames[t]; !known {
			extra = append(extra, t)
		}
	}
	slices.Sort(extra)
	for _, t := range extra {
		out = append(out, r.BySource[t]...)
	}
	return out
}

// Discoverer fans discovery out to all registered sources.
type Discoverer struct {
	sources []Source
	logger  *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithSource registers a source.
func WithSource(s Source) Option {
	return func(d *Discoverer) {
		d.sources = append(d.sources, s)
	}
}

// WithSources registers several sources.
func WithSources(sources ...Source) Option {
	return func(d *Discoverer) {
		d.sources = append(d.sources, sources...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Discoverer) {
		d.logger = l
	}
}

// NewDiscoverer creates a discoverer.
func NewDiscoverer(opts ...Option) *Discoverer {
	d := &Discoverer{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sources returns the registered source types in registration order.
func (d *Discoverer) Sources() []Type {
	types := make([]Type, 0, len(d.sources))
	for _, s := range d.sources {
		types = append(types, s.Type())
	}
	return types
}

// Patterns returns the union of every source's file patterns.
func (d *Discoverer) Patterns() []string {
	var out []string
	for _, s := range d.sources {
		for _, p := range s.Patterns() {
			if !slices.Contains(out, p) {
				out = append(out, p)
			}
		}
	}
	return out
}

// DiscoverAll runs every source concurrently and joins the results.
//
// A failing or panicking source is recorded in Errors and contributes an
// empty slice; it never aborts the pass. DiscoverAll itself only fails for
// an unusable root or invalid exclusion globs.
func (d *Discoverer) DiscoverAll(ctx context.Context, root string, excludes []string) (*DiscoveryResult, error) {
	start := time.Now()

	ws, err := NewWorkspace(root, excludes, d.logger)
	if err != nil {
		return nil, err
	}
	if err := ws.WalkErr(); err != nil {
		return nil, fmt.Errorf("enumerate workspace: %w", err)
	}

	found := make([][]*Task, len(d.sources))
	failures := make([]error, len(d.sources))

	// Every goroutine returns nil so the group never cancels its siblings.
	var g errgroup.Group
	for i, src := range d.sources {
		i, src := i, src
		g.Go(func() error {
			found[i], failures[i] = d.runSource(ctx, src, ws)
			return nil
		})
	}
	_ = g.Wait()

	result := &DiscoveryResult{
		Root:     ws.Root(),
		BySource: make(map[Type][]*Task),
	}
	seen := make(map[string]bool)
	for i, src := range d.sources {
		if failures[i] != nil {
			serr := &SourceError{Source: src.Type(), Err: failures[i]}
			result.Errors = append(result.Errors, serr)
			d.logger.Warn("task source failed", "source", src.Type(), "err", failures[i])
			continue
		}
		for _, t := range found[i] {
			d.finalize(ws, src, t)
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			result.BySource[src.Type()] = append(result.BySource[src.Type()], t)
		}
	}

	result.Duration = time.Since(start)
	result.Timestamp = time.Now()

	d.logger.Debug("discovery complete",
		"root", result.Root,
		"tasks", result.Total(),
		"failed_sources", len(result.Errors),
		"duration", result.Duration)

	return result, nil
}

// runSource calls one source, converting a panic into an error.
func (d *Discoverer) runSource(ctx context.Context, src Source, ws *Workspace) (tasks []*Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			tasks = nil
			err = fmt.Errorf("%w: %v\n%s", ErrSourcePanic, r, debug.Stack())
		}
	}()
	return src.Discover(ctx, ws)
}

// finalize fills fields sources may leave empty.
func (d *Discoverer) finalize(ws *Workspace, src Source, t *Task) {
	if t.Type == "" {
		t.Type = src.Type()
	}
	if t.Label == "" {
		t.Label = t.ID
	}
	if t.ID == "" {
		t.ID = GenerateID(t.Type, t.FilePath, t.Label)
	}
	if t.Category == "" {
		t.Category = SimplifyPath(ws.Root(), t.FilePath)
	}
}
