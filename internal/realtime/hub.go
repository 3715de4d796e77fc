// Package realtime broadcasts badge and access changes to live listeners.
// Delivery is best effort: a slow listener misses events rather than
// stalling the request that produced them.
package realtime

import (
	"context"
	"sync"
	"time"
)

const (
	EventBadgeValidated = "badge.validated"
	EventBadgeCreated   = "badge.created"
	EventBadgeUpdated   = "badge.updated"
	EventBadgeDeleted   = "badge.deleted"
	EventBadgesClosed   = "badges.closed"
	EventAccessDeleted  = "access.deleted"
)

type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(typ string, data any) Event {
	return Event{Type: typ, Time: time.Now().UTC(), Data: data}
}

// Publisher is a fire-and-forget sink for events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

const subscriberBuffer = 32

// Hub fans events out to in-process subscribers, typically SSE streams.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	if ch == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.subs[ch]
	delete(h.subs, ch)
	h.mu.Unlock()
	if ok {
		close(ch)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish never blocks and never fails.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// drop if subscriber is slow
		}
	}
	h.mu.Unlock()
	return nil
}
