package server

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/fokus-assistant/fokus-core/core/protocol"
)

// subscriberBufferSize leaves room for a full sticky replay plus a burst of
// live events before a reader is considered slow.
const subscriberBufferSize = 32

// Bus fans runtime events out to websocket observers. It keeps the latest
// payload per event type so a subscriber joining late, or reconnecting,
// immediately sees the authoritative state.
type Bus struct {
	mu          sync.Mutex
	sticky      map[protocol.EventType][]byte
	subscribers map[string]chan []byte
}

func NewBus() *Bus {
	return &Bus{
		sticky:      map[protocol.EventType][]byte{},
		subscribers: map[string]chan []byte{},
	}
}

// Publish stores the event as the new sticky value for its type and hands it
// to every subscriber. It never blocks the caller; a subscriber that cannot
// keep up loses events rather than stalling the runtime.
func (b *Bus) Publish(event protocol.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Warn("failed to marshal event, dropping", "type", string(event.EventType()), "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sticky[event.EventType()] = payload
	for id, subscriber := range b.subscribers {
		select {
		case subscriber <- payload:
		default:
			logger.Debug("subscriber too slow, dropping event",
				"subscriber", id, "type", string(event.EventType()))
		}
	}
}

// Subscribe registers a new observer. The returned channel first replays the
// sticky value of every known event type, then carries live events until
// Unsubscribe is called.
func (b *Bus) Subscribe() (string, <-chan []byte) {
	id := uuid.NewString()
	subscriber := make(chan []byte, subscriberBufferSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, eventType := range protocol.StickyOrder {
		if payload, ok := b.sticky[eventType]; ok {
			subscriber <- payload
		}
	}
	b.subscribers[id] = subscriber

	return id, subscriber
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscriber, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(subscriber)
	}
}

// SubscriberCount reports how many observers are currently attached.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
