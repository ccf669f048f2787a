// Package event provides the publish/subscribe bus the provider uses to
// announce task and tree changes.
//
// Event types use dot notation:
//   - tasks.refreshed  discovery replaced the task list
//   - tree.changed     the visible tree must be redrawn
//   - tags.changed     a tag membership was edited
//   - watch.triggered  the file watcher or schedule requested a refresh
//
// A subscription to "tree.*" receives every event whose type starts with
// "tree.". Handlers run synchronously in subscription order; a panicking
// handler is logged and does not affect the others.
package event

import (
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
)

// Event types emitted by tasktree.
const (
	TasksRefreshed = "tasks.refreshed"
	TreeChanged    = "tree.changed"
	TagsChanged    = "tags.changed"
	WatchTriggered = "watch.triggered"
)

// Event is one published notification.
type Event struct {
	Type string
	Data map[string]any
}

// Handler receives events.
type Handler func(Event)

// Publisher is the emitting side of a bus.
type Publisher interface {
	Publish(eventType string, data map[string]any)
}

// Bus is a thread-safe publish/subscribe event bus.
type Bus struct {
	mu sync.RWMutex

	// Exact subscribers by event type
	subscribers map[string]map[string]*subscription

	// Wildcard subscribers by pattern
	wildcards map[string]map[string]*subscription

	byID map[string]*subscription

	nextID atomic.Uint64
	closed atomic.Bool
	logger *slog.Logger
}

type subscription struct {
	id        string
	seq       uint64
	eventType string
	isPattern bool
	handler   Handler
}

// NewBus creates a bus. A nil logger uses slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string]map[string]*subscription),
		wildcards:   make(map[string]map[string]*subscription),
		byID:        make(map[string]*subscription),
		logger:      logger,
	}
}

// Subscribe registers handler for an exact event type or a ".*" pattern.
// It returns an id for Unsubscribe, or "" if the bus is closed.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	if b.closed.Load() || handler == nil {
		return ""
	}

	seq := b.nextID.Add(1)
	sub := &subscription{
		id:        strconv.FormatUint(seq, 10),
		seq:       seq,
		eventType: eventType,
		isPattern: isWildcard(eventType),
		handler:   handler,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.byID[sub.id] = sub
	target := b.subscribers
	if sub.isPattern {
		target = b.wildcards
	}
	if target[eventType] == nil {
		target[eventType] = make(map[string]*subscription)
	}
	target[eventType][sub.id] = sub
	return sub.id
}

// Unsubscribe removes a subscription. It reports whether it existed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.byID[id]
	if !ok {
		return false
	}
	delete(b.byID, id)

	target := b.subscribers
	if sub.isPattern {
		target = b.wildcards
	}
	if subs, ok := target[sub.eventType]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(target, sub.eventType)
		}
	}
	return true
}

// Publish delivers an event to every matching subscriber.
func (b *Bus) Publish(eventType string, data map[string]any) {
	if b.closed.Load() {
		return
	}
	ev := Event{Type: eventType, Data: data}
	for _, sub := range b.matching(eventType) {
		b.deliver(sub, ev)
	}
}

func (b *Bus) deliver(sub *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", ev.Type, "subscription", sub.id, "panic", r)
		}
	}()
	sub.handler(ev)
}

// Close drops every subscription. Later calls to Subscribe and Publish
// are no-ops.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.mu.Lock()
	b.subscribers = make(map[string]map[string]*subscription)
	b.wildcards = make(map[string]map[string]*subscription)
	b.byID = make(map[string]*subscription)
	b.mu.Unlock()
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}

// matching returns the subscriptions for eventType in subscription order.
func (b *Bus) matching(eventType string) []*subscription {
	b.mu.RLock()
	var subs []*subscription
	for _, sub := range b.subscribers[eventType] {
		subs = append(subs, sub)
	}
	for pattern, group := range b.wildcards {
		if matchPattern(pattern, eventType) {
			for _, sub := range group {
				subs = append(subs, sub)
			}
		}
	}
	b.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].seq < subs[j].seq })
	return subs
}

func isWildcard(eventType string) bool {
	return eventType == "*" || (len(eventType) >= 2 && eventType[len(eventType)-2:] == ".*")
}

// matchPattern reports whether eventType matches pattern. "*" matches
// everything and "a.*" matches any type below "a.".
func matchPattern(pattern, eventType string) bool {
	if pattern == "*" {
		return true
	}
	if !isWildcard(pattern) {
		return pattern == eventType
	}
	prefix := pattern[:len(pattern)-2]
	if len(eventType) <= len(prefix) {
		return false
	}
	return eventType[:len(prefix)] == prefix && eventType[len(prefix)] == '.'
}
