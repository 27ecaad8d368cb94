// Package queue implements the pending-song queue the playback engine advances
// through.
//
// The engine only depends on the narrow [Queue] interface: peek at the next
// item, advance in queue order, and observe head changes. Head-change
// notifications exist so the prefetch cache can be invalidated before any
// later read; they fire synchronously from the mutating call.
//
// Advancing is deliberately not a head "change": it is the sanctioned
// consumption path, and the prefetch entry for the consumed item is claimed
// through the cache's own consume operation.
package queue

import (
	"slices"
	"sync"

	"github.com/zalun/karaoke-engine/internal/models"
)

// Queue is the engine-facing queue collaborator.
type Queue interface {
	// PeekNext returns the upcoming item without consuming it, or nil.
	PeekNext() *models.PlaybackItem
	// Advance consumes and returns the next item in queue order, or nil.
	Advance() *models.PlaybackItem
	// Subscribe registers a callback fired whenever the head item changes
	// through mutation (add at an empty head, removal, reorder), but never
	// through Advance.
	Subscribe(fn func())
}

// List is the in-memory Queue implementation used by the CLI surface and the
// control API.
type List struct {
	mu        sync.Mutex
	items     []models.PlaybackItem
	listeners []func()
}

// NewList creates an empty queue.
func NewList() *List {
	return &List{}
}

// PeekNext returns a copy of the head item, or nil when empty.
func (l *List) PeekNext() *models.PlaybackItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return nil
	}
	head := l.items[0]
	return &head
}

// Advance pops and returns the head item in queue order, or nil when empty.
func (l *List) Advance() *models.PlaybackItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return nil
	}
	head := l.items[0]
	l.items = l.items[1:]
	return &head
}

// Subscribe registers a head-change callback. Callbacks run synchronously on
// the mutating goroutine and must not call back into the queue.
func (l *List) Subscribe(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Add appends an item to the end of the queue.
func (l *List) Add(item models.PlaybackItem) {
	l.mu.Lock()
	wasEmpty := len(l.items) == 0
	l.items = append(l.items, item)
	l.mu.Unlock()

	// Appending only changes the head when the queue was empty.
	if wasEmpty {
		l.notify()
	}
}

// Remove deletes the item with the given id. Returns true when found.
func (l *List) Remove(id string) bool {
	l.mu.Lock()
	idx := slices.IndexFunc(l.items, func(i models.PlaybackItem) bool { return i.ID == id })
	if idx < 0 {
		l.mu.Unlock()
		return false
	}
	l.items = slices.Delete(l.items, idx, idx+1)
	l.mu.Unlock()

	if idx == 0 {
		l.notify()
	}
	return true
}

// MoveToFront reorders the item with the given id to the head. Returns true
// when found.
func (l *List) MoveToFront(id string) bool {
	l.mu.Lock()
	idx := slices.IndexFunc(l.items, func(i models.PlaybackItem) bool { return i.ID == id })
	if idx < 0 {
		l.mu.Unlock()
		return false
	}
	if idx == 0 {
		l.mu.Unlock()
		return true
	}
	item := l.items[idx]
	l.items = slices.Delete(l.items, idx, idx+1)
	l.items = slices.Insert(l.items, 0, item)
	l.mu.Unlock()

	l.notify()
	return true
}

// Clear removes every queued item.
func (l *List) Clear() {
	l.mu.Lock()
	hadItems := len(l.items) > 0
	l.items = nil
	l.mu.Unlock()

	if hadItems {
		l.notify()
	}
}

// Items returns a snapshot copy of the queue in order.
func (l *List) Items() []models.PlaybackItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// Len returns the number of queued items.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *List) notify() {
	l.mu.Lock()
	listeners := slices.Clone(l.listeners)
	l.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

var _ Queue = (*List)(nil)
