// Package monitor fans the events sent to clients out to live viewers: the
// serve dashboard and SSH monitor sessions.
package monitor

import (
	"sync"

	"github.com/bnema/waycore/internal/trace"
	"go.uber.org/atomic"
)

// Hub distributes published records to every subscriber. Publishing never
// blocks; a subscriber that falls behind loses records.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]chan trace.Record
	nextID uint64
	closed bool

	published atomic.Int64
	dropped   atomic.Int64
}

// NewHub creates a hub without subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan trace.Record)}
}

// Subscribe returns a channel receiving every record published from now on,
// and a function that ends the subscription and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan trace.Record, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan trace.Record, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

// Publish hands rec to every subscriber with room in its buffer.
func (h *Hub) Publish(rec trace.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.published.Inc()
	for _, ch := range h.subs {
		select {
		case ch <- rec:
		default:
			h.dropped.Inc()
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Published returns how many records were published.
func (h *Hub) Published() int64 { return h.published.Load() }

// Dropped returns how many deliveries were skipped because a subscriber was
// full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Close ends every subscription. Later publishes are ignored.
func (h *Hub) Close() {
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
