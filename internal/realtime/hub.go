package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collegehub_events_published_total",
		Help: "Fan-out events handed to the broker, by event name.",
	}, []string{"event"})
	eventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collegehub_events_delivered_total",
		Help: "Fan-out events written to connected clients, by event name.",
	}, []string{"event"})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collegehub_events_dropped_total",
		Help: "Events dropped because a client send buffer was full.",
	})
)

// frame is the wire shape clients receive.
type frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Hub tracks room membership and delivers broker events to local clients.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

// Run consumes the broker stream until ctx is done. Call in its own goroutine.
func (h *Hub) Run(ctx context.Context, broker Broker) {
	events, err := broker.Subscribe(ctx)
	if err != nil {
		log.Printf("realtime: subscribe failed, fan-out disabled: %v", err)
		return
	}
	for evt := range events {
		h.deliver(evt)
	}
}

// deliver writes the event to every member of its rooms. Best effort: slow
// clients lose events instead of stalling the loop.
func (h *Hub) deliver(evt Event) {
	data, err := json.Marshal(frame{Event: evt.Name, Data: evt.Payload})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[*client]struct{})
	for _, room := range evt.Rooms {
		for cl := range h.rooms[room] {
			if _, dup := seen[cl]; dup {
				continue
			}
			seen[cl] = struct{}{}
			select {
			case cl.send <- data:
				eventsDelivered.WithLabelValues(evt.Name).Inc()
			default:
				eventsDropped.Inc()
			}
		}
	}
}

func (h *Hub) join(room string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[room] = members
	}
	members[cl] = struct{}{}
}

func (h *Hub) drop(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, members := range h.rooms {
		delete(members, cl)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// RoomSize reports current membership, used by tests and the health probe.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// Emitter is the fire-and-forget publishing side handed to the domain
// services. A nil Emitter (fan-out not configured) is a silent no-op; a
// publish failure never reaches the caller.
type Emitter struct {
	broker Broker
}

// NewEmitter wraps a broker.
func NewEmitter(broker Broker) *Emitter {
	return &Emitter{broker: broker}
}

// Emit publishes without blocking the calling request.
func (e *Emitter) Emit(evt Event) {
	if e == nil || e.broker == nil || evt.Name == "" || len(evt.Rooms) == 0 {
		return
	}
	eventsPublished.WithLabelValues(evt.Name).Inc()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.broker.Publish(ctx, evt); err != nil {
			log.Printf("realtime: publish %s failed: %v", evt.Name, err)
		}
	}()
}
