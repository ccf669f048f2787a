// Package tags assigns tag names to discovered tasks.
//
// Two dialects exist and a deployment picks one. PatternResolver
// recomputes tags from glob and structured patterns in a JSON tag file on
// every load. JunctionResolver reads explicit (task id, tag) memberships
// with a display order from a Store, and is the only dialect that can be
// edited through the Editor interface.
package tags

import (
	"context"
	"errors"
	"slices"

	"github.com/dshills/tasktree/internal/task"
)

// QuickTag is the reserved tag behind the quick launch list.
const QuickTag = "quick"

// ErrUnknownTag is returned when an operation names a tag that does not exist.
var ErrUnknownTag = errors.New("unknown tag")

// Resolver computes the tags of a task list.
type Resolver interface {
	// Load (re)reads the tag definitions.
	Load(ctx context.Context) error

	// ApplyTags replaces the Tags of every task. Calling it twice with
	// unchanged definitions yields identical tags.
	ApplyTags(tasks []*task.Task)

	// TagNames returns every declared tag, including tags no task has.
	TagNames() []string
}

// Editor is implemented by resolvers whose memberships can be changed.
type Editor interface {
	AddTaskToTag(ctx context.Context, taskID, tag string) error
	RemoveTaskFromTag(ctx context.Context, taskID, tag string) error
	ReorderCommands(ctx context.Context, tag string, orderedIDs []string) error

	// OrderedIDs returns the members of tag in display order.
	OrderedIDs(tag string) []string
}

// Store persists tag memberships for JunctionResolver.
type Store interface {
	// AddMembership adds taskID to tag, creating the tag if needed. The
	// new member is ordered last. Adding an existing member is a no-op.
	AddMembership(ctx context.Context, taskID, tag string) error
	RemoveMembership(ctx context.Context, taskID, tag string) error
	TagNames(ctx context.Context) ([]string, error)
	// MemberIDs returns the members of tag by display order.
	MemberIDs(ctx context.Context, tag string) ([]string, error)
	// Reorder sets the display order of tag's members to ids. Members
	// missing from ids keep their relative order after the listed ones.
	Reorder(ctx context.Context, tag string, ids []string) error
	CreateTag(ctx context.Context, tag string) error
	DeleteTag(ctx context.Context, tag string) error
	Close() error
}

// sortedUnique returns a sorted copy of tags without duplicates. The
// result is never nil.
func sortedUnique(tags []string) []string {
	out := slices.Clone(tags)
	if out == nil {
		return []string{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
