package seen

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisSetKey is the Redis set holding all notified fingerprints.
const redisSetKey = "milesbot:seen"

// RedisStore keeps fingerprints in a shared Redis set so that restarts and
// redeploys do not re-alert.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies connectivity with a ping.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", pingErr)
	}

	return &RedisStore{client: client}, nil
}

// Contains reports whether the fingerprint is a member of the seen set.
func (s *RedisStore) Contains(ctx context.Context, fingerprint string) (bool, error) {
	member, err := s.client.SIsMember(ctx, redisSetKey, fingerprint).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check seen set: %w", err)
	}
	return member, nil
}

// Add records the fingerprint in the seen set.
func (s *RedisStore) Add(ctx context.Context, fingerprint string) error {
	if err := s.client.SAdd(ctx, redisSetKey, fingerprint).Err(); err != nil {
		return fmt.Errorf("failed to add to seen set: %w", err)
	}
	return nil
}

// Name identifies the backing tier.
func (s *RedisStore) Name() string { return "redis" }

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
