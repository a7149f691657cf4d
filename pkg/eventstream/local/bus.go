// Package local is an in-process eventstream publisher. Subscribers are
// called synchronously in registration order and a bounded history of recent
// events is kept for inspection.
package local

import (
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/keepsake/pkg/eventstream"
)

// DefaultHistory is the number of events Recent can return.
const DefaultHistory = 64

// Bus is an in-process publisher with subscribers.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]func(eventstream.Event)
	nextID  int
	history []eventstream.Event
	limit   int
	closed  bool
}

// NewBus creates a Bus keeping up to history events. Non-positive values use
// DefaultHistory.
func NewBus(history int) *Bus {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Bus{
		subs:  make(map[int]func(eventstream.Event)),
		limit: history,
	}
}

// Subscribe registers fn for every later event. The returned function
// unregisters it.
func (b *Bus) Subscribe(fn func(eventstream.Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish records event and hands a copy to every subscriber.
func (b *Bus) Publish(_ context.Context, event *eventstream.Event) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.history = append(b.history, *event)
	if over := len(b.history) - b.limit; over > 0 {
		b.history = append([]eventstream.Event(nil), b.history[over:]...)
	}

	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	fns := make([]func(eventstream.Event), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(*event)
	}
	return nil
}

// Recent returns up to n of the latest events, oldest first.
func (b *Bus) Recent(n int) []eventstream.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > len(b.history) {
		n = len(b.history)
	}
	return append([]eventstream.Event(nil), b.history[len(b.history)-n:]...)
}

// Close drops every subscriber. Later events are discarded.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[int]func(eventstream.Event))
	return nil
}
