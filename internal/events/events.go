package events

import (
	"encoding/json"
	"sync"
	"time"

	"smiledent/internal/logging"
	"smiledent/internal/models"

	"github.com/rs/zerolog"
)

const (
	EventAppointmentCreated   = "appointment_created"
	EventAppointmentDeleted   = "appointment_deleted"
	EventAppointmentsImported = "appointments_imported"
)

// AppointmentEventPayload is published for a single appointment. Appointment is nil
// for deletions.
type AppointmentEventPayload struct {
	AppointmentID string              `json:"appointment_id"`
	Appointment   *models.Appointment `json:"appointment,omitempty"`
	Actor         string              `json:"actor,omitempty"`
}

type ImportEventPayload struct {
	Source         string   `json:"source"`
	Inserted       int      `json:"inserted"`
	Skipped        int      `json:"skipped"`
	AppointmentIDs []string `json:"appointment_ids"`
}

type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]EventHandler),
		logger:      logging.Component(logger, "events"),
	}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs the subscribers of the event type synchronously. Handler errors are
// logged and do not stop the remaining handlers.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Error().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event. A nil bus is a no-op.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&event)
	return nil
}

func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
