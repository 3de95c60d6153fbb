package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salonvox/internal/config"
	"salonvox/internal/domain"
	"salonvox/internal/models"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

// RedisSessionRepository stores call sessions as JSON values with a server
// side TTL. GETEX refreshes the TTL atomically on every read, so an active
// call never expires mid-dialog.
type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(callSID string) string {
	return fmt.Sprintf("call_session:%s", callSID)
}

func (r *RedisSessionRepository) Get(ctx context.Context, callSID string) (*models.CallSession, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	val, err := r.client.GetEx(ctx, sessionKey(callSID), r.ttl).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var session models.CallSession
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	session.UpdatedAt = time.Now()
	return &session, nil
}

func (r *RedisSessionRepository) Put(ctx context.Context, session *models.CallSession) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	session.UpdatedAt = time.Now()
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(session.CallSID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session in redis: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) Clear(ctx context.Context, callSID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.client.Del(ctx, sessionKey(callSID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

// RedisPendingRepository stores pending confirmations under their token.
// GETDEL makes consumption atomic: of two racing Finalize requests exactly
// one sees the entry.
type RedisPendingRepository struct {
	client *redis.Client
}

func NewRedisPendingRepository(client *redis.Client) *RedisPendingRepository {
	return &RedisPendingRepository{client: client}
}

func pendingKey(token string) string {
	return fmt.Sprintf("pending_confirmation:%s", token)
}

func (r *RedisPendingRepository) Put(ctx context.Context, token string, pending *models.PendingConfirmation) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending confirmation: %w", err)
	}

	ttl := time.Until(pending.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("pending confirmation already expired")
	}

	if err := r.client.Set(ctx, pendingKey(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set pending confirmation in redis: %w", err)
	}
	return nil
}

func (r *RedisPendingRepository) Get(ctx context.Context, token string) (*models.PendingConfirmation, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	val, err := r.client.Get(ctx, pendingKey(token)).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending confirmation from redis: %w", err)
	}

	return unmarshalPending(val)
}

func (r *RedisPendingRepository) Consume(ctx context.Context, token string) (*models.PendingConfirmation, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	val, err := r.client.GetDel(ctx, pendingKey(token)).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume pending confirmation from redis: %w", err)
	}

	return unmarshalPending(val)
}

func unmarshalPending(val string) (*models.PendingConfirmation, error) {
	var pending models.PendingConfirmation
	if err := json.Unmarshal([]byte(val), &pending); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending confirmation: %w", err)
	}

	// Redis TTL already bounds the lifetime; this covers clock skew between
	// the writer and the redis server.
	if pending.Expired(time.Now()) {
		return nil, domain.ErrNotFound
	}
	return &pending, nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
