package storage

import (
	"context"
	"errors"
	"fmt"

	"lightning-pos/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisKV implements KV on top of a Redis instance.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV creates a Redis-backed KV from configuration.
func NewRedisKV(cfg config.RedisConfig) *RedisKV {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisKV{client: client}
}

// NewRedisKVFromClient wraps an existing client. Used by tests.
func NewRedisKVFromClient(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// Client exposes the underlying Redis client for collaborators that share
// the connection, such as the rate limiter.
func (s *RedisKV) Client() *redis.Client {
	return s.client
}

func (s *RedisKV) Read(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return val, nil
}

func (s *RedisKV) Write(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func (s *RedisKV) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisKV) Close() error {
	return s.client.Close()
}
