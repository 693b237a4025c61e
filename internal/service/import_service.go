package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"smiledent/internal/database"
	"smiledent/internal/domain"
	"smiledent/internal/events"
	"smiledent/internal/logging"
	"smiledent/internal/models"

	"github.com/rs/zerolog"
)

// ImportService copies appointments from the legacy appointments.json file into the
// store. Re-running an import only inserts ids that are still missing.
type ImportService struct {
	repo     domain.AppointmentRepository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewImportService(repo domain.AppointmentRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *ImportService {
	return &ImportService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logging.Component(logger, "import"),
	}
}

// ImportFile imports the legacy file at path and returns the number of inserted rows.
func (s *ImportService) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open legacy file: %w", err)
	}
	defer f.Close()
	return s.importFrom(ctx, f, path)
}

// Import reads a JSON array of appointments from r and returns the number of inserted rows.
func (s *ImportService) Import(ctx context.Context, r io.Reader) (int, error) {
	return s.importFrom(ctx, r, "reader")
}

func (s *ImportService) importFrom(ctx context.Context, r io.Reader, source string) (int, error) {
	var legacy []models.Appointment
	if err := json.NewDecoder(r).Decode(&legacy); err != nil {
		return 0, fmt.Errorf("decode legacy appointments: %w", err)
	}

	inserted := make([]string, 0, len(legacy))
	skipped := 0
	for i := range legacy {
		a := &legacy[i]
		if a.ID == "" {
			s.logger.Warn().Int("index", i).Msg("skipping legacy entry without id")
			skipped++
			continue
		}

		exists, err := s.repo.AppointmentExists(ctx, a.ID)
		if err != nil {
			return len(inserted), storageFailure("import appointment", err)
		}
		if exists {
			skipped++
			continue
		}

		if err := s.repo.InsertAppointment(ctx, a); err != nil {
			if errors.Is(err, database.ErrConflict) {
				skipped++
				continue
			}
			return len(inserted), storageFailure("import appointment", err)
		}
		inserted = append(inserted, a.ID)
	}

	s.logger.Info().
		Str("source", source).
		Int("inserted", len(inserted)).
		Int("skipped", skipped).
		Msg("legacy import finished")

	if len(inserted) > 0 {
		publishEvent(s.eventBus, s.logger, events.EventAppointmentsImported, events.ImportEventPayload{
			Source:         source,
			Inserted:       len(inserted),
			Skipped:        skipped,
			AppointmentIDs: inserted,
		})
	}
	return len(inserted), nil
}
