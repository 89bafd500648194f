package broadcast

import (
	"context"
	"sync"

	"github.com/user/applicant-harvester/internal/entity"
)

const subscriberBuffer = 32

// Hub fans events out to in-process subscribers such as SSE streams.
// A subscriber that falls behind loses events rather than blocking the run.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan entity.Event
	nextID int
	last   *entity.Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan entity.Event)}
}

// Publish implements repository.EventPublisher. It never fails.
func (h *Hub) Publish(_ context.Context, event entity.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &event
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a listener. The returned function unsubscribes and
// closes the channel.
func (h *Hub) Subscribe() (<-chan entity.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan entity.Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Last returns the most recent event, if any.
func (h *Hub) Last() (entity.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return entity.Event{}, false
	}
	return *h.last, true
}
