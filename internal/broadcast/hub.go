// Package broadcast fans live telemetry frames out to websocket subscribers.
package broadcast

import (
	"encoding/json"
	"sync"
)

// Frame event names.
const (
	EventTelemetryData = "telemetry_data"
	EventSessionUpdate = "session_update"
)

// Frame is one event pushed to subscribers.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Subscriber receives frames on a buffered channel. A subscriber that falls
// behind loses frames rather than stalling the publisher.
type Subscriber struct {
	frames chan Frame
}

// Frames exposes the subscriber's receive channel. The hub closes it when
// the subscriber is removed or the hub shuts down.
func (s *Subscriber) Frames() <-chan Frame {
	return s.frames
}

// Hub tracks subscribers and publishes frames to all of them.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
	buffer      int
	closed      bool
}

// NewHub creates a hub whose subscribers buffer up to buffer frames.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 16
	}
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a new subscriber. It returns nil after Close.
func (h *Hub) Subscribe() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	sub := &Subscriber{frames: make(chan Frame, h.buffer)}
	h.subscribers[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Removing an
// already-removed subscriber is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub]; !ok {
		return
	}
	delete(h.subscribers, sub)
	close(sub.frames)
}

// Publish encodes data and sends the frame to every subscriber without
// blocking. Slow subscribers with full buffers skip the frame.
func (h *Hub) Publish(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame := Frame{Event: event, Data: payload}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	for sub := range h.subscribers {
		select {
		case sub.frames <- frame:
		default:
		}
	}
	return nil
}

// SubscriberCount reports how many subscribers are attached.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close removes all subscribers and rejects future ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.frames)
	}
}
