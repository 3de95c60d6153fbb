package repository

import (
	"context"
	"sync/atomic"
	"time"

	"salonvox/internal/domain"
	"salonvox/internal/models"

	"github.com/rs/zerolog"
)

// FailoverSessionRepository serves sessions from the primary store and falls
// back to the secondary when the primary errors, probing for recovery after
// a minute. Lookup misses (domain.ErrNotFound) are answers, not failures.
//
// Only sessions get a failover wrapper. Pending confirmations are single-use
// and letting a token straddle two stores would let it be consumed twice, so
// the pending store is picked once at startup.
type FailoverSessionRepository struct {
	primary   domain.SessionRepository
	fallback  domain.SessionRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary session repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverSessionRepository) shouldProbe() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute
}

func (r *FailoverSessionRepository) Get(ctx context.Context, callSID string) (*models.CallSession, error) {
	if !r.isDown.Load() {
		session, err := r.primary.Get(ctx, callSID)
		if err == nil || err == domain.ErrNotFound {
			return session, err
		}
		r.markDown(err)
	}

	if r.isDown.Load() && r.shouldProbe() {
		session, err := r.primary.Get(ctx, callSID)
		if err == nil || err == domain.ErrNotFound {
			r.isDown.Store(false)
			return session, err
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.Get(ctx, callSID)
}

func (r *FailoverSessionRepository) Put(ctx context.Context, session *models.CallSession) error {
	if !r.isDown.Load() {
		err := r.primary.Put(ctx, session)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Put(ctx, session)
}

func (r *FailoverSessionRepository) Clear(ctx context.Context, callSID string) error {
	if !r.isDown.Load() {
		err := r.primary.Clear(ctx, callSID)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Clear(ctx, callSID)
}
