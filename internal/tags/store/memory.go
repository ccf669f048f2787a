// Package store provides the persistent tag membership stores used by
// the junction tag dialect.
package store

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var (
	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("tag store closed")

	// ErrTagNotFound is returned when reordering a tag that does not exist.
	ErrTagNotFound = errors.New("tag not found")
)

// Memory is an in-memory store for tests and ephemeral sessions.
type Memory struct {
	mu      sync.Mutex
	closed  bool
	tags    []string
	members map[string][]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{members: make(map[string][]string)}
}

func (m *Memory) check() error {
	if m.closed {
		return ErrStoreClosed
	}
	return nil
}

func (m *Memory) createLocked(tag string) {
	if _, ok := m.members[tag]; !ok {
		m.tags = append(m.tags, tag)
		m.members[tag] = nil
	}
}

// AddMembership adds taskID to tag.
func (m *Memory) AddMembership(ctx context.Context, taskID, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.createLocked(tag)
	if !slices.Contains(m.members[tag], taskID) {
		m.members[tag] = append(m.members[tag], taskID)
	}
	return nil
}

// RemoveMembership removes taskID from tag. The tag itself remains.
func (m *Memory) RemoveMembership(ctx context.Context, taskID, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if ids, ok := m.members[tag]; ok {
		m.members[tag] = slices.DeleteFunc(ids, func(id string) bool { return id == taskID })
	}
	return nil
}

// TagNames returns the tags in name order.
func (m *Memory) TagNames(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	names := slices.Clone(m.tags)
	slices.Sort(names)
	return names, nil
}

// MemberIDs returns the members of tag in display order.
func (m *Memory) MemberIDs(ctx context.Context, tag string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	return slices.Clone(m.members[tag]), nil
}

// Reorder sets the display order of tag's members.
func (m *Memory) Reorder(ctx context.Context, tag string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	current, ok := m.members[tag]
	if !ok {
		return ErrTagNotFound
	}
	m.members[tag] = reorder(current, ids)
	return nil
}

// CreateTag declares an empty tag.
func (m *Memory) CreateTag(ctx context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.createLocked(tag)
	return nil
}

// DeleteTag removes a tag and its memberships.
func (m *Memory) DeleteTag(ctx context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	delete(m.members, tag)
	m.tags = slices.DeleteFunc(m.tags, func(n string) bool { return n == tag })
	return nil
}

// Close marks the store closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// reorder returns current rearranged so that the members listed in ids
// come first, in that order, followed by the rest in their old order.
// IDs that are not members are ignored.
func reorder(current, ids []string) []string {
	out := make([]string, 0, len(current))
	placed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !placed[id] && slices.Contains(current, id) {
			out = append(out, id)
			placed[id] = true
		}
	}
	for _, id := range current {
		if !placed[id] {
			out = append(out, id)
		}
	}
	return out
}
