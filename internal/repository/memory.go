package repository

import (
	"context"
	"sync"
	"time"

	"salonvox/internal/domain"
	"salonvox/internal/models"
)

// MemorySessionRepository keeps call sessions in a locked map with lazy
// TTL eviction. There is no background sweep: a stale entry is dropped the
// first time it is touched.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*models.CallSession
	ttl      time.Duration
	now      func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*models.CallSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *MemorySessionRepository) Get(ctx context.Context, callSID string) (*models.CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[callSID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	now := r.now()
	if session.Expired(now, r.ttl) {
		delete(r.sessions, callSID)
		return nil, domain.ErrNotFound
	}

	// Each touch extends the idle window.
	session.UpdatedAt = now
	return copySession(session), nil
}

func (r *MemorySessionRepository) Put(ctx context.Context, session *models.CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copySession(session)
	stored.UpdatedAt = r.now()
	r.sessions[session.CallSID] = stored
	return nil
}

func (r *MemorySessionRepository) Clear(ctx context.Context, callSID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, callSID)
	return nil
}

// copySession detaches the stored value from the caller's pointer so
// concurrent turns never share mutable state.
func copySession(s *models.CallSession) *models.CallSession {
	out := *s
	if len(s.Data.Slots) > 0 {
		out.Data.Slots = append([]time.Time(nil), s.Data.Slots...)
	}
	return &out
}

// MemoryPendingRepository keeps pending confirmations keyed by token.
// Consume removes the entry under the same lock that validated it, which is
// what makes the token single-use.
type MemoryPendingRepository struct {
	mu      sync.Mutex
	entries map[string]*models.PendingConfirmation
	now     func() time.Time
}

func NewMemoryPendingRepository() *MemoryPendingRepository {
	return &MemoryPendingRepository{
		entries: make(map[string]*models.PendingConfirmation),
		now:     time.Now,
	}
}

func (r *MemoryPendingRepository) Put(ctx context.Context, token string, pending *models.PendingConfirmation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *pending
	r.entries[token] = &stored
	return nil
}

func (r *MemoryPendingRepository) Get(ctx context.Context, token string) (*models.PendingConfirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, ok := r.entries[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if pending.Expired(r.now()) {
		delete(r.entries, token)
		return nil, domain.ErrNotFound
	}

	out := *pending
	return &out, nil
}

func (r *MemoryPendingRepository) Consume(ctx context.Context, token string) (*models.PendingConfirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, ok := r.entries[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(r.entries, token)
	if pending.Expired(r.now()) {
		return nil, domain.ErrNotFound
	}

	out := *pending
	return &out, nil
}
