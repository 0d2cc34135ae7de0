// Package broadcast owns the published snapshot and its fan-out to
// subscribers.
package broadcast

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"courtside/internal/domain"
	"courtside/internal/metrics"
)

// Subscriber is one observer's handle on the hub. Events arrive on C;
// Close releases the queue and removes the handle.
type Subscriber struct {
	ID  uuid.UUID
	C   <-chan domain.Event
	hub *Hub

	send chan domain.Event
}

// Close unsubscribes. Safe to call once per subscriber; the hub closes
// the event channel as it removes the handle. After Stop the hub has
// already released every handle, so Close returns immediately.
func (s *Subscriber) Close() {
	select {
	case s.hub.unregister <- s:
	case <-s.hub.done:
	}
}

// Hub pushes every published event to all current subscribers without
// ever blocking on a slow one: each subscriber has a bounded queue,
// and when it is full the oldest buffered event is dropped in favor of
// the newest.
type Hub struct {
	queueSize int
	log       zerolog.Logger

	register    chan *Subscriber
	unregister  chan *Subscriber
	broadcast   chan domain.Event
	subscribers map[uuid.UUID]*Subscriber
	done        chan struct{}
}

// NewHub creates a hub. queueSize is the per-subscriber buffer.
func NewHub(queueSize int, log zerolog.Logger) *Hub {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Hub{
		queueSize:   queueSize,
		log:         log.With().Str("component", "hub").Logger(),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		broadcast:   make(chan domain.Event, 64),
		subscribers: make(map[uuid.UUID]*Subscriber),
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main loop. All subscriber-map access happens on
// this goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for id, sub := range h.subscribers {
				close(sub.send)
				delete(h.subscribers, id)
			}
			metrics.Subscribers.Set(0)
			return

		case sub := <-h.register:
			h.subscribers[sub.ID] = sub
			metrics.Subscribers.Set(float64(len(h.subscribers)))
			h.log.Debug().Str("subscriber", sub.ID.String()).Int("total", len(h.subscribers)).Msg("subscriber connected")

		case sub := <-h.unregister:
			if _, ok := h.subscribers[sub.ID]; ok {
				delete(h.subscribers, sub.ID)
				close(sub.send)
			}
			metrics.Subscribers.Set(float64(len(h.subscribers)))
			h.log.Debug().Str("subscriber", sub.ID.String()).Int("total", len(h.subscribers)).Msg("subscriber disconnected")

		case ev := <-h.broadcast:
			for _, sub := range h.subscribers {
				select {
				case sub.send <- ev:
				default:
					// Slow consumer: drop its oldest buffered event
					// and retry once. The subscriber loses superseded
					// data only; the hub never blocks.
					select {
					case <-sub.send:
					default:
					}
					select {
					case sub.send <- ev:
					default:
					}
				}
			}
		}
	}
}

// Stop shuts the hub down and closes all subscriber channels
func (h *Hub) Stop() {
	close(h.done)
}

// Subscribe registers a new observer. After Stop it returns a handle
// whose event channel is already closed.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:   uuid.New(),
		hub:  h,
		send: make(chan domain.Event, h.queueSize),
	}
	sub.C = sub.send

	select {
	case h.register <- sub:
	case <-h.done:
		close(sub.send)
	}
	return sub
}

// Broadcast queues an event for delivery to every subscriber. Never
// blocks: if the hub's own intake is saturated the event is dropped,
// which only ever happens when the hub loop is not running.
func (h *Hub) Broadcast(ev domain.Event) {
	select {
	case h.broadcast <- ev:
	default:
		h.log.Warn().Str("event", ev.Type).Msg("broadcast channel full, dropping event")
	}
}
