package service

import (
	"context"
	"io"
	"time"

	"smiledent/internal/domain"
	"smiledent/internal/events"
	"smiledent/internal/export"
	"smiledent/internal/logging"
	"smiledent/internal/models"

	"github.com/rs/zerolog"
)

// Dashboard is the data behind the admin page.
type Dashboard struct {
	Appointments []models.Appointment
	Stats        models.Stats
	Now          time.Time
}

// AdminService holds every administrative operation. Each method takes the caller's
// session and refuses to run without an active one.
type AdminService struct {
	repo       domain.AppointmentRepository
	importer   *ImportService
	eventBus   domain.EventPublisher
	catalog    models.Catalog
	legacyPath string
	logger     *zerolog.Logger
	now        func() time.Time
}

func NewAdminService(
	repo domain.AppointmentRepository,
	importer *ImportService,
	eventBus domain.EventPublisher,
	catalog models.Catalog,
	legacyPath string,
	logger *zerolog.Logger,
) *AdminService {
	return &AdminService{
		repo:       repo,
		importer:   importer,
		eventBus:   eventBus,
		catalog:    catalog,
		legacyPath: legacyPath,
		logger:     logging.Component(logger, "admin"),
		now:        time.Now,
	}
}

func (s *AdminService) authorize(session *models.Session) error {
	if !session.Active(s.now()) {
		return ErrSessionRequired
	}
	return nil
}

func (s *AdminService) List(ctx context.Context, session *models.Session) ([]models.Appointment, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}
	list, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return nil, storageFailure("list appointments", err)
	}
	return list, nil
}

func (s *AdminService) Dashboard(ctx context.Context, session *models.Session) (*Dashboard, error) {
	list, err := s.List(ctx, session)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &Dashboard{
		Appointments: list,
		Stats:        ComputeStats(list, now),
		Now:          now,
	}, nil
}

// Delete removes the appointment and reports whether it existed.
func (s *AdminService) Delete(ctx context.Context, session *models.Session, id string) (bool, error) {
	if err := s.authorize(session); err != nil {
		return false, err
	}
	deleted, err := s.repo.DeleteAppointment(ctx, id)
	if err != nil {
		return false, storageFailure("delete appointment", err)
	}
	if !deleted {
		return false, nil
	}

	s.logger.Info().Str("appointment_id", id).Str("username", session.Username).Msg("appointment deleted")
	publishEvent(s.eventBus, s.logger, events.EventAppointmentDeleted, events.AppointmentEventPayload{
		AppointmentID: id,
		Actor:         session.Username,
	})
	return true, nil
}

// Export writes the xlsx workbook of all appointments into w.
func (s *AdminService) Export(ctx context.Context, session *models.Session, w io.Writer) error {
	list, err := s.List(ctx, session)
	if err != nil {
		return err
	}
	now := s.now()
	return export.WriteAppointments(w, list, ComputeStats(list, now), s.catalog, now)
}

// Import runs the legacy import from the configured file.
func (s *AdminService) Import(ctx context.Context, session *models.Session) (int, error) {
	if err := s.authorize(session); err != nil {
		return 0, err
	}
	s.logger.Info().Str("username", session.Username).Str("path", s.legacyPath).Msg("legacy import requested")
	return s.importer.ImportFile(ctx, s.legacyPath)
}

func (s *AdminService) Catalog() models.Catalog {
	return s.catalog
}
