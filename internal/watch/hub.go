// Package watch pushes modification markers to connected clients, the push
// variant of the change-detection protocol. Subscribers that fall behind
// only ever miss intermediate markers, never the latest one.
package watch

import "sync"

// Hub fans a marker out to every subscriber.
type Hub struct {
	mu          sync.RWMutex
	latest      int64
	subscribers map[chan int64]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan int64]struct{})}
}

// Subscribe returns a channel receiving future markers. The channel is
// buffered; a slow consumer drops intermediate markers rather than blocking
// the save path.
func (h *Hub) Subscribe() chan int64 {
	ch := make(chan int64, 8)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (h *Hub) Unsubscribe(ch chan int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// Notify broadcasts a new marker to all subscribers. Markers that do not
// advance past the latest broadcast one are ignored, so out-of-order
// delivery from concurrent saves cannot move a subscriber backwards. When a
// subscriber's buffer is full the oldest queued marker is evicted to make
// room, never the incoming one.
func (h *Hub) Notify(marker int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if marker <= h.latest {
		return
	}
	h.latest = marker

	for ch := range h.subscribers {
		select {
		case ch <- marker:
		default:
			select {
			case <-ch:
			default:
			}
			// Notify is the only sender and holds the lock, so the evicted
			// slot is still free.
			ch <- marker
		}
	}
}

// Count returns the number of active subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
