// Package hub fans board change events out to live subscribers.
package hub

import (
	"context"
	"sync"
	"time"
)

// DefaultBuffer is how many undelivered events a subscriber may hold before
// the hub drops it.
const DefaultBuffer = 8

// Event tells subscribers that something changed and they should re-fetch.
// Timestamp is in Unix milliseconds.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// NewEvent stamps eventType with at.
func NewEvent(eventType string, at time.Time) Event {
	return Event{Type: eventType, Timestamp: at.UnixMilli()}
}

// Subscription is one registered listener. Its channel is closed once the
// subscription is removed from the hub.
type Subscription struct {
	ch chan Event
}

// Events returns the channel on which published events arrive.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Hub is a registry of subscribers. It is safe for concurrent use.
type Hub struct {
	buffer int
	now    func() time.Time

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// New creates a hub whose subscribers buffer up to buffer events. A
// non-positive buffer selects DefaultBuffer.
func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer: buffer,
		now:    time.Now,
		subs:   make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new listener. It receives only events published
// after this call.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{ch: make(chan Event, h.buffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe removes s and closes its channel. Removing a subscription that
// is already gone is a no-op.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(s)
}

func (h *Hub) remove(s *Subscription) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.ch)
}

// Publish stamps eventType with the current time and broadcasts it.
func (h *Hub) Publish(eventType string) Event {
	ev := NewEvent(eventType, h.now())
	h.Broadcast(ev)
	return ev
}

// Broadcast hands ev to every subscriber without blocking. A subscriber whose
// buffer is full is dropped; the rest still get the event. It returns the
// number of subscribers that received it.
func (h *Hub) Broadcast(ev Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for s := range h.subs {
		select {
		case s.ch <- ev:
			delivered++
		default:
			h.remove(s)
		}
	}
	return delivered
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber, ending their streams.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		h.remove(s)
	}
}

// Notify publishes eventType to local subscribers. It never fails; the
// signature matches notifiers that go over the network.
func (h *Hub) Notify(_ context.Context, eventType string) error {
	h.Publish(eventType)
	return nil
}

// Clients is Count under the notifier interface.
func (h *Hub) Clients() int {
	return h.Count()
}
