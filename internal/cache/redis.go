package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store over github.com/redis/go-redis/v9, the
// canonical Go client for Redis/Valkey (the other_examples RSS-catalog
// caching handler uses the identical GetCache/SetEx idiom this
// generalises to the typed Cached[T] envelope).
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore dials redisURL (e.g. "redis://valkey/") eagerly via
// redis.ParseURL + redis.NewClient.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisStore{rdb: redis.NewClient(opts)}, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// SetEx implements Store.
func (s *RedisStore) SetEx(ctx context.Context, key string, raw []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, raw, ttl).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies connectivity, used by the process health check.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
