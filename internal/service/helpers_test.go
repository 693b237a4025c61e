package service

import (
	"context"
	"io"
	"testing"

	"smiledent/internal/database"
	"smiledent/internal/events"
	"smiledent/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type mockAppointmentRepo struct {
	mock.Mock
}

func (m *mockAppointmentRepo) InsertAppointment(ctx context.Context, a *models.Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAppointmentRepo) ListAppointments(ctx context.Context) ([]models.Appointment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}

func (m *mockAppointmentRepo) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *mockAppointmentRepo) DeleteAppointment(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockAppointmentRepo) AppointmentExists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// recordingBus collects published events in order.
type recordingBus struct {
	events []events.Event
}

func (b *recordingBus) PublishJSON(eventType string, payload interface{}) error {
	e, err := events.NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) types() []string {
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}
