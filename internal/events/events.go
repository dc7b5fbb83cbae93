package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/models"
)

const (
	EventRequestSubmitted = "request_submitted"
	EventQuoteCreated     = "quote_created"
	EventQuoteAccepted    = "quote_accepted"
	EventQuoteRejected    = "quote_rejected"
)

// LifecyclePayload carries the entity snapshots notification handlers
// need; Quote is nil for request_submitted.
type LifecyclePayload struct {
	Request *models.TravelRequest `json:"request,omitempty"`
	Quote   *models.Quote         `json:"quote,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events. Handlers run
// synchronously and their errors are dropped; a failing notification
// must never block the lifecycle transition that triggered it.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
