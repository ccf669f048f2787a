package tags

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dshills/tasktree/internal/task"
)

// JunctionResolver assigns tags from explicit memberships held in a Store.
// The in-memory index is a read-through cache that only Load replaces.
type JunctionResolver struct {
	store  Store
	logger *slog.Logger

	mu     sync.RWMutex
	names  []string
	byTask map[string][]string
	order  map[string][]string
}

// NewJunctionResolver creates a resolver over store. The caller keeps
// ownership of the store and closes it.
func NewJunctionResolver(store Store, opts ...Option) *JunctionResolver {
	o := buildOptions(opts)
	return &JunctionResolver{
		store:  store,
		logger: o.logger,
		byTask: map[string][]string{},
		order:  map[string][]string{},
	}
}

// Load rebuilds the index from the store. On failure the previous index is
// kept.
func (r *JunctionResolver) Load(ctx context.Context) error {
	names, err := r.store.TagNames(ctx)
	if err != nil {
		return fmt.Errorf("load tag names: %w", err)
	}

	byTask := make(map[string][]string)
	order := make(map[string][]string, len(names))
	for _, name := range names {
		ids, err := r.store.MemberIDs(ctx, name)
		if err != nil {
			return fmt.Errorf("load members of %q: %w", name, err)
		}
		order[name] = ids
		for _, id := range ids {
			byTask[id] = append(byTask[id], name)
		}
	}

	r.mu.Lock()
	r.names = sortedUnique(names)
	r.byTask = byTask
	r.order = order
	r.mu.Unlock()

	r.logger.Debug("loaded tag memberships", "tags", len(names), "tasks", len(byTask))
	return nil
}

// ApplyTags sets every task's tags from the index.
func (r *JunctionResolver) ApplyTags(tasks []*task.Task) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range tasks {
		t.Tags = sortedUnique(r.byTask[t.ID])
	}
}

// TagNames returns every tag in the store, including empty ones.
func (r *JunctionResolver) TagNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}

// OrderedIDs returns the members of tag in display order.
func (r *JunctionResolver) OrderedIDs(tag string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order[tag])
}

// AddTaskToTag adds a membership and reloads the index.
func (r *JunctionResolver) AddTaskToTag(ctx context.Context, taskID, tag string) error {
	if taskID == "" || tag == "" {
		return fmt.Errorf("task id and tag must not be empty")
	}
	if err := r.store.AddMembership(ctx, taskID, tag); err != nil {
		return fmt.Errorf("add %s to %q: %w", taskID, tag, err)
	}
	return r.Load(ctx)
}

// RemoveTaskFromTag removes a membership and reloads the index.
func (r *JunctionResolver) RemoveTaskFromTag(ctx context.Context, taskID, tag string) error {
	if err := r.store.RemoveMembership(ctx, taskID, tag); err != nil {
		return fmt.Errorf("remove %s from %q: %w", taskID, tag, err)
	}
	return r.Load(ctx)
}

// ReorderCommands persists a new display order for tag and reloads the
// index.
func (r *JunctionResolver) ReorderCommands(ctx context.Context, tag string, orderedIDs []string) error {
	r.mu.RLock()
	known := slices.Contains(r.names, tag)
	r.mu.RUnlock()
	if !known {
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	if err := r.store.Reorder(ctx, tag, orderedIDs); err != nil {
		return fmt.Errorf("reorder %q: %w", tag, err)
	}
	return r.Load(ctx)
}
