package domain

import (
	"context"
	"time"

	"smiledent/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type AppointmentRepository interface {
	InsertAppointment(ctx context.Context, a *models.Appointment) error
	ListAppointments(ctx context.Context) ([]models.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) (bool, error)
	AppointmentExists(ctx context.Context, id string) (bool, error)
}

type CredentialRepository interface {
	SeedUser(ctx context.Context, username, passwordHash string) (bool, error)
	GetCredential(ctx context.Context, username string) (*models.Credential, error)
}

// SessionRepository stores admin sessions. GetSession returns nil, nil for an unknown id.
type SessionRepository interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session, ttl time.Duration) error
	DeleteSession(ctx context.Context, id string) error
}

type SyncQueue interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, now time.Time, limit int) ([]models.SyncTask, error)
	GetSyncTask(ctx context.Context, id int64) (*models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SheetsWriter interface {
	UpsertAppointment(ctx context.Context, a *models.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error
}

type Notifier interface {
	NotifyAppointment(ctx context.Context, a *models.Appointment) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
