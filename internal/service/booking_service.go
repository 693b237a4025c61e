package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"smiledent/internal/database"
	"smiledent/internal/domain"
	"smiledent/internal/events"
	"smiledent/internal/logging"
	"smiledent/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxIDAttempts = 3

// BookingForm is the raw public booking form. Dentist and Notes are optional.
type BookingForm struct {
	FullName string
	Phone    string
	Email    string
	Service  string
	Dentist  string
	Date     string
	Time     string
	Notes    string
}

type BookingService struct {
	repo     domain.AppointmentRepository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
	newID    func(time.Time) string
}

func NewBookingService(repo domain.AppointmentRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logging.Component(logger, "booking"),
		now:      time.Now,
		newID:    NewAppointmentID,
	}
}

// NewAppointmentID returns the submission timestamp followed by 12 random hex digits.
// IDs sort by submission second.
func NewAppointmentID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return now.Format("20060102150405") + "-" + random[:12]
}

// Submit validates the form, stores the appointment and returns it with its reference.
func (s *BookingService) Submit(ctx context.Context, form BookingForm) (*models.Appointment, error) {
	form = normalizeForm(form)
	if err := validateForm(form); err != nil {
		return nil, err
	}

	now := s.now()
	a := &models.Appointment{
		FullName:    form.FullName,
		Phone:       form.Phone,
		Email:       form.Email,
		Service:     form.Service,
		Dentist:     form.Dentist,
		Date:        form.Date,
		Time:        form.Time,
		SubmittedAt: now.Format(models.SubmittedLayout),
		Notes:       form.Notes,
	}

	var err error
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		a.ID = s.newID(now)
		err = s.repo.InsertAppointment(ctx, a)
		if err == nil {
			break
		}
		if !errors.Is(err, database.ErrConflict) {
			s.logger.Error().Err(err).Str("appointment_id", a.ID).Msg("failed to store appointment")
			return nil, storageFailure("submit appointment", err)
		}
		s.logger.Warn().Str("appointment_id", a.ID).Int("attempt", attempt).Msg("appointment id collision")
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID).
		Str("service", a.Service).
		Str("date", a.Date).
		Msg("appointment booked")

	publishEvent(s.eventBus, s.logger, events.EventAppointmentCreated, events.AppointmentEventPayload{
		AppointmentID: a.ID,
		Appointment:   a,
	})

	return a, nil
}

func normalizeForm(f BookingForm) BookingForm {
	return BookingForm{
		FullName: strings.TrimSpace(f.FullName),
		Phone:    strings.TrimSpace(f.Phone),
		Email:    strings.TrimSpace(f.Email),
		Service:  strings.TrimSpace(f.Service),
		Dentist:  strings.TrimSpace(f.Dentist),
		Date:     strings.TrimSpace(f.Date),
		Time:     strings.TrimSpace(f.Time),
		Notes:    strings.TrimSpace(f.Notes),
	}
}

func validateForm(f BookingForm) error {
	required := []struct {
		field string
		value string
	}{
		{"full_name", f.FullName},
		{"phone", f.Phone},
		{"email", f.Email},
		{"service", f.Service},
		{"date", f.Date},
		{"time", f.Time},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Message: MsgMissingField}
		}
	}

	if !strings.Contains(f.Email, "@") || !strings.Contains(f.Email, ".") {
		return &ValidationError{Field: "email", Message: MsgInvalidEmail}
	}
	return nil
}
