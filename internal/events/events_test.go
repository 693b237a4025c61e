package events

import (
	"bytes"
	"errors"
	"testing"

	"smiledent/internal/models"

	"github.com/rs/zerolog"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus(nil)

	var received *Event
	var callCount int

	bus.Subscribe(EventAppointmentCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	payload := AppointmentEventPayload{
		AppointmentID: "20240603143000-abc",
		Appointment:   &models.Appointment{ID: "20240603143000-abc", FullName: "Jean Dupont"},
	}
	if err := bus.PublishJSON(EventAppointmentCreated, payload); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventAppointmentCreated {
		t.Errorf("expected type %s, got %s", EventAppointmentCreated, received.Type)
	}

	var decoded AppointmentEventPayload
	if err := received.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.Appointment == nil || decoded.Appointment.FullName != "Jean Dupont" {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusHandlerErrorDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := NewEventBus(&logger)

	var second int
	bus.Subscribe(EventAppointmentDeleted, func(_ *Event) error { return errors.New("sheets down") })
	bus.Subscribe(EventAppointmentDeleted, func(_ *Event) error { second++; return nil })

	bus.Publish(&Event{Type: EventAppointmentDeleted})

	if second != 1 {
		t.Errorf("expected second handler to run once, got %d", second)
	}
	if !bytes.Contains(buf.Bytes(), []byte("sheets down")) {
		t.Errorf("expected handler error to be logged, got %q", buf.String())
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	bus.Publish(&Event{Type: "unknown"})
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON(EventAppointmentsImported, ImportEventPayload{}); err != nil {
		t.Errorf("nil bus should be a no-op, got %v", err)
	}
}

func TestNewJSONEvent(t *testing.T) {
	event, err := NewJSONEvent(EventAppointmentsImported, ImportEventPayload{Inserted: 2, Skipped: 1})
	if err != nil {
		t.Fatalf("NewJSONEvent failed: %v", err)
	}
	if event.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	var decoded ImportEventPayload
	if err := event.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded.Inserted != 2 || decoded.Skipped != 1 {
		t.Errorf("unexpected payload %+v", decoded)
	}
}
