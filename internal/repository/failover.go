package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"smiledent/internal/domain"
	"smiledent/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSessionRepository serves sessions from primary and switches to fallback
// after the first primary error. The primary is retried once per recoveryInterval.
type FailoverSessionRepository struct {
	primary  domain.SessionRepository
	fallback domain.SessionRepository
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
	// ids logged out while the primary was unreachable; deleted there on recovery
	revoked map[string]struct{}
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		revoked:  make(map[string]struct{}),
	}
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary session repository failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// usePrimary reports whether the next call should go to the primary.
func (r *FailoverSessionRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverSessionRepository) recovered(ctx context.Context) {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("primary session repository recovered")
	}
	r.replayDeletes(ctx)
}

func (r *FailoverSessionRepository) isRevoked(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[id]
	return ok
}

// replayDeletes removes from the primary the sessions logged out during an outage.
func (r *FailoverSessionRepository) replayDeletes(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.revoked))
	for id := range r.revoked {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		if err := r.primary.DeleteSession(ctx, id); err != nil {
			r.logger.Warn().Err(err).Str("session_id", id).Msg("replay session delete")
			return
		}
		r.mu.Lock()
		delete(r.revoked, id)
		r.mu.Unlock()
	}
}

func (r *FailoverSessionRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	if r.isRevoked(id) {
		if r.usePrimary() {
			if err := r.primary.DeleteSession(ctx, id); err == nil {
				r.recovered(ctx)
			} else {
				r.markDown(err)
			}
		}
		return nil, nil
	}
	if r.usePrimary() {
		session, err := r.primary.GetSession(ctx, id)
		if err == nil {
			r.recovered(ctx)
			if session != nil {
				return session, nil
			}
			// sessions created during an outage live only in the fallback
			return r.fallback.GetSession(ctx, id)
		}
		r.markDown(err)
	}
	return r.fallback.GetSession(ctx, id)
}

func (r *FailoverSessionRepository) SetSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.SetSession(ctx, session, ttl)
		if err == nil {
			r.recovered(ctx)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetSession(ctx, session, ttl)
}

// DeleteSession clears both stores. The primary is tried even while marked down;
// when it cannot be reached the id stays revoked until the delete is replayed.
func (r *FailoverSessionRepository) DeleteSession(ctx context.Context, id string) error {
	fallbackErr := r.fallback.DeleteSession(ctx, id)
	if err := r.primary.DeleteSession(ctx, id); err != nil {
		r.mu.Lock()
		r.revoked[id] = struct{}{}
		r.mu.Unlock()
		r.markDown(err)
		return fallbackErr
	}
	r.recovered(ctx)
	return fallbackErr
}
