// Package provider owns the discovered task list and the filter state, and
// serves the lazy tree view built from them.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/dshills/tasktree/internal/event"
	"github.com/dshills/tasktree/internal/tags"
	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/tree"
)

var (
	// ErrReadOnlyTags is returned by tag edits when the resolver cannot
	// change memberships.
	ErrReadOnlyTags = errors.New("tags are read-only with this dialect")

	// ErrTaskNotFound is returned when a task id is not in the current list.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNodeNotFound is returned when a node id does not resolve.
	ErrNodeNotFound = errors.New("node not found")
)

// Discoverer finds tasks under a workspace root.
type Discoverer interface {
	DiscoverAll(ctx context.Context, root string, excludes []string) (*task.DiscoveryResult, error)
}

// Option configures a Provider.
type Option func(*Provider)

// WithExcludes sets the exclusion globs passed to discovery.
func WithExcludes(excludes []string) Option {
	return func(p *Provider) {
		p.excludes = slices.Clone(excludes)
	}
}

// WithSortOrder sets the initial sort order.
func WithSortOrder(order tree.SortOrder) Option {
	return func(p *Provider) {
		p.order = order
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithEvents sets the bus change notifications are published on.
func WithEvents(pub event.Publisher) Option {
	return func(p *Provider) {
		p.events = pub
	}
}

// Provider is the tree data provider.
//
// All methods are safe for concurrent use. Concurrent refreshes both run to
// completion and the last one to finish determines the task list.
type Provider struct {
	root       string
	discoverer Discoverer
	resolver   tags.Resolver
	excludes   []string
	logger     *slog.Logger
	events     event.Publisher

	mu         sync.RWMutex
	loaded     bool
	tasks      []*task.Task
	byID       map[string]*task.Task
	last       *task.DiscoveryResult
	textFilter string
	tagFilter  string
	order      tree.SortOrder
}

// New creates a provider for the workspace at root.
func New(root string, discoverer Discoverer, resolver tags.Resolver, opts ...Option) *Provider {
	p := &Provider{
		root:       root,
		discoverer: discoverer,
		resolver:   resolver,
		excludes:   slices.Clone(task.DefaultExcludes),
		logger:     slog.Default(),
		order:      tree.SortFolder,
		byID:       map[string]*task.Task{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Root returns the workspace root.
func (p *Provider) Root() string {
	return p.root
}

// Refresh reloads the tag definitions, rediscovers every task and applies
// tags, replacing the task list.
func (p *Provider) Refresh(ctx context.Context) error {
	if err := p.resolver.Load(ctx); err != nil {
		// Keep going with the previous tag index.
		p.logger.Warn("tag load failed", "error", err)
	}

	result, err := p.discoverer.DiscoverAll(ctx, p.root, p.excludes)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	tasks := task.Flatten(result)
	p.resolver.ApplyTags(tasks)

	byID := make(map[string]*task.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	p.mu.Lock()
	p.tasks = tasks
	p.byID = byID
	p.last = result
	p.loaded = true
	p.mu.Unlock()

	p.logger.Info("tasks refreshed", "root", p.root, "tasks", len(tasks), "errors", len(result.Errors), "duration", result.Duration)
	p.publish(event.TasksRefreshed, map[string]any{"count": len(tasks)})
	p.publish(event.TreeChanged, map[string]any{"reason": "refresh"})
	return nil
}

// ensureLoaded runs the first discovery on demand.
func (p *Provider) ensureLoaded(ctx context.Context) error {
	p.mu.RLock()
	loaded := p.loaded
	p.mu.RUnlock()
	if loaded {
		return nil
	}
	return p.Refresh(ctx)
}

// LastResult returns the most recent discovery result, or nil.
func (p *Provider) LastResult() *task.DiscoveryResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// GetAllTasks returns every discovered task, unfiltered.
func (p *Provider) GetAllTasks(ctx context.Context) ([]*task.Task, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.tasks), nil
}

// GetAllTags returns every applied or declared tag name, sorted.
func (p *Provider) GetAllTags() []string {
	names := p.resolver.TagNames()

	p.mu.RLock()
	for _, t := range p.tasks {
		names = append(names, t.Tags...)
	}
	p.mu.RUnlock()

	slices.Sort(names)
	return slices.Compact(names)
}

// FindTask returns the task with id.
func (p *Provider) FindTask(id string) (*task.Task, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

// Task loads tasks if needed and returns the task with id.
func (p *Provider) Task(ctx context.Context, id string) (*task.Task, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return p.FindTask(id)
}

// VisibleTasks returns the tasks passing the current filters, sorted by
// the current order.
func (p *Provider) VisibleTasks(ctx context.Context) ([]*task.Task, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	visible := p.visibleLocked()
	order := p.order
	p.mu.RUnlock()

	tree.SortTasks(p.root, visible, order)
	return visible, nil
}

// visibleLocked filters the task list. Callers hold p.mu.
func (p *Provider) visibleLocked() []*task.Task {
	var out []*task.Task
	for _, t := range p.tasks {
		if p.matchesLocked(t) {
			out = append(out, t)
		}
	}
	return out
}

func (p *Provider) matchesLocked(t *task.Task) bool {
	if p.tagFilter != "" && !t.HasTag(p.tagFilter) {
		return false
	}
	if p.textFilter == "" {
		return true
	}
	needle := strings.ToLower(p.textFilter)
	for _, field := range []string{t.Label, t.Category, task.RelPath(p.root, t.FilePath), t.Description} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// QuickTasks returns the tasks tagged quick. With an Editor resolver they
// follow the stored order; otherwise they are sorted by label.
func (p *Provider) QuickTasks(ctx context.Context) ([]*task.Task, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	p.mu.RLock()
	var quick []*task.Task
	for _, t := range p.tasks {
		if t.HasTag(tags.QuickTag) {
			quick = append(quick, t)
		}
	}
	p.mu.RUnlock()

	if ed, ok := p.resolver.(tags.Editor); ok {
		rank := make(map[string]int)
		for i, id := range ed.OrderedIDs(tags.QuickTag) {
			rank[id] = i
		}
		slices.SortStableFunc(quick, func(a, b *task.Task) int {
			return rank[a.ID] - rank[b.ID]
		})
		return quick, nil
	}
	tree.SortTasks(p.root, quick, tree.SortName)
	return quick, nil
}

// GetChildren returns the children of node. A nil node yields the
// category nodes, running discovery first if it has not happened yet.
// Category children are rebuilt from the filtered task list on every call.
func (p *Provider) GetChildren(ctx context.Context, node *tree.Node) ([]*tree.Node, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	if node == nil {
		p.mu.RLock()
		visible := p.visibleLocked()
		p.mu.RUnlock()
		return tree.Categories(visible), nil
	}

	switch node.Kind {
	case tree.KindCategory:
		return p.buildCategory(node.Type), nil
	case tree.KindFolder:
		return node.Children, nil
	default:
		return nil, nil
	}
}

func (p *Provider) buildCategory(typ task.Type) []*tree.Node {
	p.mu.RLock()
	var tasks []*task.Task
	for _, t := range p.visibleLocked() {
		if t.Type == typ {
			tasks = append(tasks, t)
		}
	}
	order := p.order
	p.mu.RUnlock()

	if typ.Flat() {
		return tree.Flat(p.root, tasks, order)
	}
	return tree.Build(p.root, tasks, order)
}

// Node resolves a node id produced by GetChildren. The empty id is the
// invisible root, returned as nil.
func (p *Provider) Node(ctx context.Context, id string) (*tree.Node, error) {
	if id == "" {
		return nil, nil
	}
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	if typ, ok := tree.ParseCategoryID(id); ok {
		for _, n := range p.categories() {
			if n.Type == typ {
				return n, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if typ, _, ok := tree.ParseFolderID(id); ok {
		if n := tree.Find(p.buildCategory(typ), id); n != nil {
			return n, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if t, err := p.FindTask(id); err == nil {
		return &tree.Node{ID: t.ID, Kind: tree.KindTask, Label: t.Label, Type: t.Type, Task: t}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
}

func (p *Provider) categories() []*tree.Node {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return tree.Categories(p.visibleLocked())
}

// SetTextFilter sets the case-insensitive text filter.
func (p *Provider) SetTextFilter(text string) {
	p.mu.Lock()
	p.textFilter = strings.TrimSpace(text)
	p.mu.Unlock()
	p.publish(event.TreeChanged, map[string]any{"reason": "filter"})
}

// SetTagFilter limits the view to tasks carrying tag.
func (p *Provider) SetTagFilter(tag string) {
	p.mu.Lock()
	p.tagFilter = strings.TrimSpace(tag)
	p.mu.Unlock()
	p.publish(event.TreeChanged, map[string]any{"reason": "filter"})
}

// ClearFilters removes both filters.
func (p *Provider) ClearFilters() {
	p.mu.Lock()
	p.textFilter, p.tagFilter = "", ""
	p.mu.Unlock()
	p.publish(event.TreeChanged, map[string]any{"reason": "filter"})
}

// HasFilter reports whether a text or tag filter is active.
func (p *Provider) HasFilter() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.textFilter != "" || p.tagFilter != ""
}

// Filters returns the current text and tag filters.
func (p *Provider) Filters() (text, tag string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.textFilter, p.tagFilter
}

// SetSortOrder changes the sort order.
func (p *Provider) SetSortOrder(order tree.SortOrder) {
	p.mu.Lock()
	p.order = order
	p.mu.Unlock()
	p.publish(event.TreeChanged, map[string]any{"reason": "sort"})
}

// SortOrder returns the current sort order.
func (p *Provider) SortOrder() tree.SortOrder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.order
}

// AddTaskToTag adds a task to a tag through the resolver's Editor.
func (p *Provider) AddTaskToTag(ctx context.Context, taskID, tag string) error {
	return p.editTags(ctx, tag, func(ed tags.Editor) error {
		if _, err := p.FindTask(taskID); err != nil {
			return err
		}
		return ed.AddTaskToTag(ctx, taskID, tag)
	})
}

// RemoveTaskFromTag removes a task from a tag.
func (p *Provider) RemoveTaskFromTag(ctx context.Context, taskID, tag string) error {
	return p.editTags(ctx, tag, func(ed tags.Editor) error {
		return ed.RemoveTaskFromTag(ctx, taskID, tag)
	})
}

// ReorderQuick stores a new order for the quick launch list.
func (p *Provider) ReorderQuick(ctx context.Context, orderedIDs []string) error {
	return p.ReorderTag(ctx, tags.QuickTag, orderedIDs)
}

// ReorderTag stores a new member order for tag.
func (p *Provider) ReorderTag(ctx context.Context, tag string, orderedIDs []string) error {
	return p.editTags(ctx, tag, func(ed tags.Editor) error {
		return ed.ReorderCommands(ctx, tag, orderedIDs)
	})
}

func (p *Provider) editTags(ctx context.Context, tag string, edit func(tags.Editor) error) error {
	ed, ok := p.resolver.(tags.Editor)
	if !ok {
		return ErrReadOnlyTags
	}
	if err := p.ensureLoaded(ctx); err != nil {
		return err
	}
	if err := edit(ed); err != nil {
		return err
	}

	// Tasks already handed to callers are never written; the retagged
	// copies replace the list.
	p.mu.Lock()
	tasks := make([]*task.Task, len(p.tasks))
	byID := make(map[string]*task.Task, len(p.tasks))
	for i, t := range p.tasks {
		tasks[i] = t.Clone()
		byID[t.ID] = tasks[i]
	}
	p.resolver.ApplyTags(tasks)
	p.tasks = tasks
	p.byID = byID
	p.mu.Unlock()

	p.publish(event.TagsChanged, map[string]any{"tag": tag})
	p.publish(event.TreeChanged, map[string]any{"reason": "tags"})
	return nil
}

func (p *Provider) publish(eventType string, data map[string]any) {
	if p.events != nil {
		p.events.Publish(eventType, data)
	}
}
