package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"smiledent/internal/database"
	"smiledent/internal/events"
	"smiledent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validForm() BookingForm {
	return BookingForm{
		FullName: "  Jean Dupont ",
		Phone:    "01 23 45 67 89",
		Email:    "jean@test.com",
		Service:  "consultation",
		Dentist:  "dr-martin",
		Date:     "2024-06-10",
		Time:     "14:30",
		Notes:    " Première visite ",
	}
}

func TestNewAppointmentID(t *testing.T) {
	now := time.Date(2024, 6, 3, 14, 30, 5, 0, time.UTC)
	id := NewAppointmentID(now)
	assert.Regexp(t, regexp.MustCompile(`^20240603143005-[0-9a-f]{12}$`), id)
	assert.NotEqual(t, id, NewAppointmentID(now))
}

func TestBookingService_Submit(t *testing.T) {
	db := setupTestDB(t)
	bus := &recordingBus{}
	svc := NewBookingService(db, bus, testLogger())
	svc.now = func() time.Time { return time.Date(2024, 6, 3, 9, 15, 0, 0, time.UTC) }
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		a, err := svc.Submit(ctx, validForm())
		require.NoError(t, err)
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}

	list, err := db.ListAppointments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 5)

	for _, got := range list {
		assert.Equal(t, "Jean Dupont", got.FullName)
		assert.Equal(t, "Première visite", got.Notes)
		assert.Equal(t, "2024-06-03 09:15:00", got.SubmittedAt)
	}

	require.Len(t, bus.events, 5)
	var payload events.AppointmentEventPayload
	require.NoError(t, bus.events[0].Decode(&payload))
	assert.Equal(t, events.EventAppointmentCreated, bus.events[0].Type)
	assert.Equal(t, "Jean Dupont", payload.Appointment.FullName)
}

func TestBookingService_Validation(t *testing.T) {
	fields := map[string]func(f *BookingForm){
		"full_name": func(f *BookingForm) { f.FullName = "   " },
		"phone":     func(f *BookingForm) { f.Phone = "" },
		"email":     func(f *BookingForm) { f.Email = "" },
		"service":   func(f *BookingForm) { f.Service = "" },
		"date":      func(f *BookingForm) { f.Date = "" },
		"time":      func(f *BookingForm) { f.Time = "" },
	}

	for field, mutate := range fields {
		t.Run("missing "+field, func(t *testing.T) {
			db := setupTestDB(t)
			svc := NewBookingService(db, nil, testLogger())

			form := validForm()
			mutate(&form)
			_, err := svc.Submit(context.Background(), form)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, field, vErr.Field)
			assert.Equal(t, "missing required field", vErr.Message)
			assert.ErrorIs(t, err, ErrValidation)

			count, err := db.CountAppointments(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}

	t.Run("optional fields may be empty", func(t *testing.T) {
		svc := NewBookingService(setupTestDB(t), nil, testLogger())
		form := validForm()
		form.Dentist, form.Notes = "", ""
		_, err := svc.Submit(context.Background(), form)
		assert.NoError(t, err)
	})
}

func TestBookingService_EmailCheck(t *testing.T) {
	svc := NewBookingService(setupTestDB(t), nil, testLogger())
	ctx := context.Background()

	form := validForm()
	form.Email = "foo"
	_, err := svc.Submit(ctx, form)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "invalid email", vErr.Message)

	form.Email = "a@b.c"
	_, err = svc.Submit(ctx, form)
	assert.NoError(t, err)
}

func TestBookingService_RetriesOnConflict(t *testing.T) {
	repo := new(mockAppointmentRepo)
	svc := NewBookingService(repo, nil, testLogger())

	calls := 0
	svc.newID = func(time.Time) string {
		calls++
		return fmt.Sprintf("id-%d", calls)
	}

	conflict := fmt.Errorf("insert appointment: %w", database.ErrConflict)
	repo.On("InsertAppointment", mock.Anything, mock.MatchedBy(func(a *models.Appointment) bool { return a.ID == "id-1" })).
		Return(conflict).Once()
	repo.On("InsertAppointment", mock.Anything, mock.MatchedBy(func(a *models.Appointment) bool { return a.ID == "id-2" })).
		Return(nil).Once()

	a, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, "id-2", a.ID)
	repo.AssertExpectations(t)
}

func TestBookingService_GivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := new(mockAppointmentRepo)
	svc := NewBookingService(repo, nil, testLogger())

	repo.On("InsertAppointment", mock.Anything, mock.Anything).Return(database.ErrConflict).Times(maxIDAttempts)

	_, err := svc.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, database.ErrConflict)
	repo.AssertExpectations(t)
}

func TestBookingService_StorageFailure(t *testing.T) {
	repo := new(mockAppointmentRepo)
	bus := &recordingBus{}
	svc := NewBookingService(repo, bus, testLogger())

	repo.On("InsertAppointment", mock.Anything, mock.Anything).
		Return(&database.StorageError{Op: "insert appointment", Err: errors.New("disk I/O error")}).Once()

	_, err := svc.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrStorage)
	var storage *database.StorageError
	assert.True(t, errors.As(err, &storage))
	assert.Empty(t, bus.events)
}
