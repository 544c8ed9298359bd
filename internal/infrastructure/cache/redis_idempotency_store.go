package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// keyPrefix namespaces idempotency keys so the database can be shared with
// other pharmacy services.
const keyPrefix = "invoice:idempotency:"

// RedisConfig holds the connection settings for the idempotency store.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisIdempotencyStore keeps processed request keys in Redis, so retried
// invoice submissions are recognized across instances and restarts.
type RedisIdempotencyStore struct {
	client *redis.Client
}

// NewRedisIdempotencyStore connects to Redis and verifies the connection
// with a ping before handing the store out. The caller falls back to the
// in-memory store when this fails.
func NewRedisIdempotencyStore(cfg RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisIdempotencyStore{client: client}, nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client. Used by
// tests that bring their own miniredis-backed client.
func NewRedisIdempotencyStoreWithClient(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

// MarkProcessed records a request key for the given TTL. SETNX makes the
// check-and-set atomic, so two racing submissions of the same invoice see
// exactly one true.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, requestKey string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+requestKey, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("marking request key: %w", err)
	}
	return ok, nil
}

// IsProcessed reports whether a request key is still live.
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, requestKey string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+requestKey).Result()
	if err != nil {
		return false, fmt.Errorf("checking request key: %w", err)
	}
	return n > 0, nil
}

// Close releases the Redis connection.
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
