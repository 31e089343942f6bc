package events

import (
	"context"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/metrics"
)

const defaultBuffer = 16

// Bus is an in-process publisher with non-blocking fan-out. A subscriber
// whose buffer is full misses the event rather than stalling the publisher.
type Bus struct {
	Logger *logging.Logger

	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	closed bool
}

type subscription struct {
	ch     chan Event
	filter func(Event) bool
}

// NewBus returns an empty bus.
func NewBus(logger *logging.Logger) *Bus {
	return &Bus{Logger: logger, subs: map[int]*subscription{}}
}

// Subscribe registers a listener for every event.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	return b.SubscribeFunc(buffer, nil)
}

// SubscribeSearch registers a listener for events of one search.
func (b *Bus) SubscribeSearch(searchID string, buffer int) (<-chan Event, func()) {
	return b.SubscribeFunc(buffer, func(e Event) bool { return e.SearchID == searchID })
}

// SubscribeFunc registers a listener for events accepted by filter (nil accepts all).
// The returned cancel func is idempotent and closes the channel.
func (b *Bus) SubscribeFunc(buffer int, filter func(Event) bool) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	sub := &subscription{ch: make(chan Event, buffer), filter: filter}

	b.mu.Lock()
	if b.subs == nil {
		b.subs = map[int]*subscription{}
	}
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if s, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.ch)
			}
			b.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Publish delivers event to every matching subscriber without blocking.
func (b *Bus) Publish(_ context.Context, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.filter != nil && !sub.filter(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			metrics.RecordDroppedEvent()
			if b.Logger != nil {
				b.Logger.Warn("Dropped search status event for slow subscriber",
					zap.String("search_id", event.SearchID),
					zap.String("stage", string(event.Stage)))
			}
		}
	}
}

// Close closes all subscriber channels. Later subscriptions receive a closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
