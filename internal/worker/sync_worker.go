package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smiledent/internal/config"
	"smiledent/internal/domain"
	"smiledent/internal/events"
	"smiledent/internal/logging"
	"smiledent/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskSheetsUpsert  = "sheets_upsert"
	TaskSheetsDelete  = "sheets_delete"
	TaskNotifyCreated = "notify_created"
)

// taskPayload is persisted in SyncTask.Payload as JSON.
type taskPayload struct {
	AppointmentID string              `json:"appointment_id"`
	Appointment   *models.Appointment `json:"appointment,omitempty"`
}

// Targets are the external systems the worker delivers to. Either may be nil.
type Targets struct {
	Sheets   domain.SheetsWriter
	Notifier domain.Notifier
}

// SyncWorker drains the sync_queue table, delivering appointment changes to the
// configured targets with exponential backoff between attempts.
type SyncWorker struct {
	queue         domain.SyncQueue
	appointments  domain.AppointmentRepository
	targets       Targets
	redis         *redis.Client
	retryPolicy   RetryPolicy
	local         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
	now           func() time.Time
}

func NewSyncWorker(
	queue domain.SyncQueue,
	appointments domain.AppointmentRepository,
	targets Targets,
	redisClient *redis.Client,
	cfg config.WorkerConfig,
	logger *zerolog.Logger,
) *SyncWorker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &SyncWorker{
		queue:         queue,
		appointments:  appointments,
		targets:       targets,
		redis:         redisClient,
		retryPolicy:   NewRetryPolicy(cfg),
		local:         make(chan models.SyncTask, 128),
		redisQueueKey: "smiledent:sync:queue",
		deadLetterKey: "smiledent:sync:deadletter",
		pollInterval:  pollInterval,
		batchSize:     20,
		logger:        logging.Component(logger, "sync_worker"),
		now:           time.Now,
	}
}

// Enabled reports whether any delivery target is configured.
func (w *SyncWorker) Enabled() bool {
	return w.targets.Sheets != nil || w.targets.Notifier != nil
}

// Subscribe turns appointment events into queued tasks for the configured targets.
func (w *SyncWorker) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventAppointmentCreated, func(e *events.Event) error {
		var p events.AppointmentEventPayload
		if err := e.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", e.Type, err)
		}
		ctx := context.Background()
		if w.targets.Sheets != nil {
			if err := w.Enqueue(ctx, TaskSheetsUpsert, p.AppointmentID, p.Appointment); err != nil {
				return err
			}
		}
		if w.targets.Notifier != nil {
			return w.Enqueue(ctx, TaskNotifyCreated, p.AppointmentID, p.Appointment)
		}
		return nil
	})

	if w.targets.Sheets == nil {
		return
	}

	bus.Subscribe(events.EventAppointmentDeleted, func(e *events.Event) error {
		var p events.AppointmentEventPayload
		if err := e.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", e.Type, err)
		}
		return w.Enqueue(context.Background(), TaskSheetsDelete, p.AppointmentID, nil)
	})

	bus.Subscribe(events.EventAppointmentsImported, func(e *events.Event) error {
		var p events.ImportEventPayload
		if err := e.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", e.Type, err)
		}
		var errs []error
		for _, id := range p.AppointmentIDs {
			errs = append(errs, w.Enqueue(context.Background(), TaskSheetsUpsert, id, nil))
		}
		return errors.Join(errs...)
	})
}

// Enqueue persists the task and hands it to redis or the in-memory queue. Tasks that
// fit neither are still picked up by polling.
func (w *SyncWorker) Enqueue(ctx context.Context, taskType, appointmentID string, a *models.Appointment) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if appointmentID == "" && a != nil {
		appointmentID = a.ID
	}
	if appointmentID == "" {
		return errors.New("appointment id is required")
	}

	payloadBytes, err := json.Marshal(taskPayload{AppointmentID: appointmentID, Appointment: a})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:      taskType,
		AppointmentID: appointmentID,
		Payload:       string(payloadBytes),
		Status:        models.SyncStatusPending,
		CreatedAt:     w.now(),
	}
	if err := w.queue.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushList(ctx, w.redisQueueKey, &task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, using memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.local <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("memory queue full, task left to polling")
	}
	return nil
}

// Start runs the delivery loop until ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sync worker started")
	defer w.logger.Info().Msg("sync worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processQueued(ctx, &t)
			continue
		}
		if t, ok := w.tryRedis(ctx); ok {
			w.processQueued(ctx, &t)
			continue
		}

		tasks, err := w.queue.GetPendingSyncTasks(ctx, w.now(), w.batchSize)
		if err != nil && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("fetch pending tasks")
		}
		if len(tasks) == 0 {
			if t, ok := w.wait(ctx); ok {
				w.processQueued(ctx, &t)
			}
			continue
		}
		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

// wait blocks for one poll interval or until a task arrives on the memory queue.
func (w *SyncWorker) wait(ctx context.Context) (models.SyncTask, bool) {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case t := <-w.local:
		return t, true
	case <-timer.C:
	}
	return models.SyncTask{}, false
}

func (w *SyncWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.local:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SyncWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("redis BRPOP failed")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

// processQueued re-reads a task handed over by a queue so one that polling already
// finished or rescheduled is not delivered early.
func (w *SyncWorker) processQueued(ctx context.Context, task *models.SyncTask) {
	current, err := w.queue.GetSyncTask(ctx, task.ID)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("reload queued task")
		return
	}
	if current.Status == models.SyncStatusCompleted || current.Status == models.SyncStatusFailed {
		return
	}
	// a retry scheduled by polling waits for its backoff
	if current.NextRetryAt != nil && current.NextRetryAt.After(w.now()) {
		return
	}
	w.processTask(ctx, current)
}

func (w *SyncWorker) processTask(ctx context.Context, task *models.SyncTask) {
	var payload taskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.queue.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark completed")
		return
	}
	w.logger.Debug().Int64("task_id", task.ID).Str("type", task.TaskType).Msg("task delivered")
}

func (w *SyncWorker) handleTask(ctx context.Context, taskType string, payload taskPayload) error {
	switch taskType {
	case TaskSheetsUpsert:
		if w.targets.Sheets == nil {
			return errors.New("sheets target not configured")
		}
		a, err := w.resolveAppointment(ctx, payload)
		if err != nil {
			return err
		}
		return w.targets.Sheets.UpsertAppointment(ctx, a)
	case TaskSheetsDelete:
		if w.targets.Sheets == nil {
			return errors.New("sheets target not configured")
		}
		return w.targets.Sheets.DeleteAppointment(ctx, payload.AppointmentID)
	case TaskNotifyCreated:
		if w.targets.Notifier == nil {
			return errors.New("notifier not configured")
		}
		a, err := w.resolveAppointment(ctx, payload)
		if err != nil {
			return err
		}
		return w.targets.Notifier.NotifyAppointment(ctx, a)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *SyncWorker) resolveAppointment(ctx context.Context, payload taskPayload) (*models.Appointment, error) {
	if payload.Appointment != nil {
		return payload.Appointment, nil
	}
	if w.appointments == nil || payload.AppointmentID == "" {
		return nil, errors.New("appointment payload missing")
	}
	a, err := w.appointments.GetAppointment(ctx, payload.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment %s: %w", payload.AppointmentID, err)
	}
	return a, nil
}

func (w *SyncWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	next := w.now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.queue.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, cause.Error(), &next); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
		return
	}
	w.logger.Warn().Err(cause).
		Int64("task_id", task.ID).
		Str("type", task.TaskType).
		Int("attempt", attempt).
		Time("next_retry_at", next).
		Msg("task failed, will retry")
}

func (w *SyncWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.queue.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("type", task.TaskType).Msg("task failed permanently")
	if w.redis != nil {
		if err := w.pushList(ctx, w.deadLetterKey, task); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push failed")
		}
	}
}

func (w *SyncWorker) pushList(ctx context.Context, key string, task *models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
