package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"topdivers/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	verifiedKeyPrefix = "auth:verified:"
	attemptsKeyPrefix = "auth:attempts:"
)

// RedisAuthRepository stores verification stamps and attempt counters in Redis.
type RedisAuthRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// NewRedisAuthRepository keeps verification stamps for ttl.
func NewRedisAuthRepository(client *redis.Client, ttl time.Duration) *RedisAuthRepository {
	return &RedisAuthRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisAuthRepository) LastVerified(ctx context.Context, tokenKey string) (time.Time, bool, error) {
	if r.client == nil {
		return time.Time{}, false, errors.New("redis client is nil")
	}
	val, err := r.client.Get(ctx, verifiedKeyPrefix+tokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get verification stamp: %w", err)
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid verification stamp %q: %w", val, err)
	}
	return time.UnixMilli(ms), true, nil
}

func (r *RedisAuthRepository) MarkVerified(ctx context.Context, tokenKey string, at time.Time) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	if err := r.client.Set(ctx, verifiedKeyPrefix+tokenKey, at.UnixMilli(), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set verification stamp: %w", err)
	}
	return nil
}

func (r *RedisAuthRepository) ForgetVerified(ctx context.Context, tokenKey string) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	if err := r.client.Del(ctx, verifiedKeyPrefix+tokenKey).Err(); err != nil {
		return fmt.Errorf("failed to delete verification stamp: %w", err)
	}
	return nil
}

// CheckRateLimit counts one attempt for key and reports whether it is
// within limit for the current window.
func (r *RedisAuthRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, errors.New("redis client is nil")
	}
	k := attemptsKeyPrefix + key
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, k, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

func (r *RedisAuthRepository) ResetRateLimit(ctx context.Context, key string) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	if err := r.client.Del(ctx, attemptsKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
