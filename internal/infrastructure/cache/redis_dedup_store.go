package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultDedupKeyPrefix namespaces dedup keys in a shared Redis
const DefaultDedupKeyPrefix = "garmentflow:dedup:"

// RedisDedupStore shares handled keys across replicas with SET NX EX
type RedisDedupStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisDedupStore connects to Redis and verifies the connection with PING
func NewRedisDedupStore(ctx context.Context, opts *redis.Options) (*RedisDedupStore, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return NewRedisDedupStoreWithClient(client, DefaultDedupKeyPrefix), nil
}

// NewRedisDedupStoreWithClient wraps an existing client
func NewRedisDedupStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisDedupStore {
	if keyPrefix == "" {
		keyPrefix = DefaultDedupKeyPrefix
	}
	return &RedisDedupStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed sets the key only if it does not exist yet
func (s *RedisDedupStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %q as processed: %w", key, err)
	}
	return ok, nil
}

// Forget deletes the key
func (s *RedisDedupStore) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to forget %q: %w", key, err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisDedupStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisDedupStore)(nil)
