package repository

import (
	"context"
	"sync"
	"time"

	"smiledent/internal/models"
)

type memoryEntry struct {
	session   *models.Session
	expiresAt time.Time
}

// MemorySessionRepository keeps sessions in process memory. Used when Redis is not
// configured and as the failover target when it is.
type MemorySessionRepository struct {
	sessions sync.Map
	now      func() time.Time
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{now: time.Now}
}

func (r *MemorySessionRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	val, ok := r.sessions.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(memoryEntry)
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		r.sessions.Delete(id)
		return nil, nil
	}
	return entry.session, nil
}

func (r *MemorySessionRepository) SetSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	entry := memoryEntry{session: session}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.sessions.Store(session.ID, entry)
	return nil
}

func (r *MemorySessionRepository) DeleteSession(ctx context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}
