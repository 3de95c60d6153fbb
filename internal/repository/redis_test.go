package repository

import (
	"context"
	"testing"
	"time"

	"salonvox/internal/domain"
	"salonvox/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisSessionRepository(client, time.Minute)
	ctx := context.Background()

	t.Run("PutAndGet", func(t *testing.T) {
		session := models.NewCallSession("CA123", time.Now())
		session.Step = models.StepCollectName
		session.Data.Service = models.ServiceWomanCut

		require.NoError(t, repo.Put(ctx, session))

		got, err := repo.Get(ctx, "CA123")
		require.NoError(t, err)
		assert.Equal(t, "CA123", got.CallSID)
		assert.Equal(t, models.StepCollectName, got.Step)
		assert.Equal(t, models.ServiceWomanCut, got.Data.Service)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.Get(ctx, "CA999")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("GetRefreshesTTL", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, models.NewCallSession("CA456", time.Now())))

		// Two reads 40 seconds apart keep a 1-minute TTL alive; GETEX resets
		// the clock on every read.
		s.FastForward(40 * time.Second)
		_, err := repo.Get(ctx, "CA456")
		require.NoError(t, err)

		s.FastForward(40 * time.Second)
		_, err = repo.Get(ctx, "CA456")
		assert.NoError(t, err)
	})

	t.Run("ExpiresWhenIdle", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, models.NewCallSession("CA789", time.Now())))

		s.FastForward(61 * time.Second)
		_, err := repo.Get(ctx, "CA789")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, models.NewCallSession("CA321", time.Now())))
		require.NoError(t, repo.Clear(ctx, "CA321"))

		_, err := repo.Get(ctx, "CA321")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisSessionRepository(nil, time.Minute)
		_, err := repo.Get(ctx, "CA123")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})
}

func TestRedisPendingRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisPendingRepository(client)
	ctx := context.Background()

	newPending := func() *models.PendingConfirmation {
		return &models.PendingConfirmation{
			ExpiresAt: time.Now().Add(time.Minute),
			Payload: models.ConfirmationPayload{
				Phone:            "+15145551234",
				Name:             "Jean Dupont",
				Service:          models.ServiceManCut,
				SchedulingHandle: "handle-1",
				StartTime:        time.Now().Add(24 * time.Hour),
			},
		}
	}

	t.Run("GetDoesNotConsume", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "tok1", newPending()))

		for i := 0; i < 3; i++ {
			got, err := repo.Get(ctx, "tok1")
			require.NoError(t, err)
			assert.Equal(t, "Jean Dupont", got.Payload.Name)
		}
	})

	t.Run("ConsumeIsSingleUse", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "tok2", newPending()))

		got, err := repo.Consume(ctx, "tok2")
		require.NoError(t, err)
		assert.Equal(t, "handle-1", got.Payload.SchedulingHandle)

		_, err = repo.Consume(ctx, "tok2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ExpiredLooksLikeMissing", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "tok3", newPending()))

		s.FastForward(61 * time.Second)
		_, err := repo.Get(ctx, "tok3")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("RejectsAlreadyExpired", func(t *testing.T) {
		pending := newPending()
		pending.ExpiresAt = time.Now().Add(-time.Second)
		assert.Error(t, repo.Put(ctx, "tok4", pending))
	})
}
