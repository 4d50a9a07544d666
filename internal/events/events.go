package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingConfirmed = "booking_confirmed"
	EventBookingRejected  = "booking_rejected"
)

// BookingEventPayload is the booking snapshot event consumers see.
type BookingEventPayload struct {
	BookingID   int64     `json:"booking_id"`
	ClassID     int64     `json:"class_id"`
	ClassName   string    `json:"class_name"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email"`
	CreatedAt   time.Time `json:"created_at"`
}

// BookingRejectedPayload describes a booking attempt that passed validation
// but could not be honored (unknown class, exhausted slot pool).
type BookingRejectedPayload struct {
	ClassID     int64  `json:"class_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	Reason      string `json:"reason"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
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
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.Publish(&Event{Type: eventType, Payload: data})
	return nil
}
