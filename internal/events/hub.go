package events

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/models"
)

// Event types published on the hub
const (
	EventJobCreated  = "job.created"
	EventJobProgress = "job.progress"
	EventJobDone     = "job.done"
)

// Event is one job state change broadcast to subscribers.
type Event struct {
	Type string      `json:"type"`
	Job  *models.Job `json:"job"`
}

// Hub fans job events out to subscribers, typically websocket connections.
// Publishing never blocks: a subscriber that cannot keep up has the event
// dropped rather than stalling the scheduler.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	logger arbor.ILogger
}

func NewHub(logger arbor.ILogger) *Hub {
	return &Hub{
		subs:   make(map[int]chan Event),
		logger: logger,
	}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called when the subscriber goes away.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, 32)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
}

// Publish broadcasts an event to all current subscribers.
func (h *Hub) Publish(eventType string, job *models.Job) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- Event{Type: eventType, Job: job}:
		default:
			h.logger.Debug().Str("event", eventType).Msg("Dropping event for slow subscriber")
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
