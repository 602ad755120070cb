package service

import (
	"sync"

	"github.com/fitloop/backend-auth/internal/domain"
)

// EventHub fans auth-change events out to subscribers. Events are published
// after every successful state change (sign-in, sign-out, token refresh,
// password update) so listeners converge without polling.
type EventHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan domain.AuthEvent
	closed bool
}

// NewEventHub creates a new EventHub
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[int]chan domain.AuthEvent)}
}

// Subscribe registers a listener. The returned cancel function releases the
// subscription and closes the channel; it is safe to call more than once.
func (h *EventHub) Subscribe() (<-chan domain.AuthEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	ch := make(chan domain.AuthEvent, 16)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber. A subscriber that has
// fallen 16 events behind loses the oldest delivery rather than blocking
// the publisher; the newest event always lands so a terminal SIGNED_OUT is
// never the one dropped.
func (h *EventHub) Publish(evt domain.AuthEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			// Full buffer: evict the oldest entry to make room
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}
}

// Close releases all subscriptions
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
