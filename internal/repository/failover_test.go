package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"salonvox/internal/domain"
	"salonvox/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenSessionRepository struct {
	err error
}

func (r *brokenSessionRepository) Get(ctx context.Context, callSID string) (*models.CallSession, error) {
	return nil, r.err
}

func (r *brokenSessionRepository) Put(ctx context.Context, session *models.CallSession) error {
	return r.err
}

func (r *brokenSessionRepository) Clear(ctx context.Context, callSID string) error {
	return r.err
}

func TestFailoverSessionRepository(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("UsesPrimaryWhenHealthy", func(t *testing.T) {
		primary := NewMemorySessionRepository(time.Hour)
		fallback := NewMemorySessionRepository(time.Hour)
		repo := NewFailoverSessionRepository(primary, fallback, &logger)

		require.NoError(t, repo.Put(ctx, models.NewCallSession("CA123", time.Now())))

		got, err := primary.Get(ctx, "CA123")
		require.NoError(t, err)
		assert.Equal(t, "CA123", got.CallSID)

		_, err = fallback.Get(ctx, "CA123")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("NotFoundIsAnAnswer", func(t *testing.T) {
		primary := NewMemorySessionRepository(time.Hour)
		fallback := NewMemorySessionRepository(time.Hour)
		repo := NewFailoverSessionRepository(primary, fallback, &logger)

		// A miss on the healthy primary must not fall through to the
		// fallback, where a stale copy could resurrect old state.
		require.NoError(t, fallback.Put(ctx, models.NewCallSession("CA123", time.Now())))

		_, err := repo.Get(ctx, "CA123")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("FallsBackOnError", func(t *testing.T) {
		primary := &brokenSessionRepository{err: errors.New("connection refused")}
		fallback := NewMemorySessionRepository(time.Hour)
		repo := NewFailoverSessionRepository(primary, fallback, &logger)

		require.NoError(t, repo.Put(ctx, models.NewCallSession("CA123", time.Now())))

		got, err := repo.Get(ctx, "CA123")
		require.NoError(t, err)
		assert.Equal(t, "CA123", got.CallSID)
	})

	t.Run("StaysDownWithoutProbe", func(t *testing.T) {
		primary := &brokenSessionRepository{err: errors.New("connection refused")}
		fallback := NewMemorySessionRepository(time.Hour)
		repo := NewFailoverSessionRepository(primary, fallback, &logger)

		require.NoError(t, repo.Put(ctx, models.NewCallSession("CA123", time.Now())))
		assert.True(t, repo.isDown.Load())

		// Subsequent calls keep serving from the fallback.
		require.NoError(t, repo.Clear(ctx, "CA123"))
		_, err := repo.Get(ctx, "CA123")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
