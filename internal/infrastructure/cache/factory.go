package cache

import (
	"context"
	"fmt"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DedupStoreFactory picks the dedup store for the configured deployment
type DedupStoreFactory struct {
	redisConfig config.RedisConfig
	logger      *zap.Logger
	connect     func(ctx context.Context, opts *redis.Options) (shared.IdempotencyStore, error)
}

// DedupStoreFactoryOption is a functional option for configuring the factory
type DedupStoreFactoryOption func(*DedupStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) DedupStoreFactoryOption {
	return func(f *DedupStoreFactory) {
		f.logger = logger
	}
}

// NewDedupStoreFactory creates a new factory
func NewDedupStoreFactory(cfg config.RedisConfig, opts ...DedupStoreFactoryOption) *DedupStoreFactory {
	f := &DedupStoreFactory{
		redisConfig: cfg,
		logger:      zap.NewNop(),
		connect: func(ctx context.Context, opts *redis.Options) (shared.IdempotencyStore, error) {
			return NewRedisDedupStore(ctx, opts)
		},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateStore returns the Redis store when Redis is enabled and reachable.
// Otherwise it falls back to memory, unless fallback is disabled.
func (f *DedupStoreFactory) CreateStore(ctx context.Context) (shared.IdempotencyStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory dedup store")
		return NewMemoryDedupStore(0), nil
	}

	store, err := f.connect(ctx, &redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("Using Redis dedup store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.redisConfig.AllowFallback {
		return nil, fmt.Errorf("redis required for webhook deduplication but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory dedup store. "+
		"Replicas will not share webhook deduplication state.",
		zap.Error(err),
	)
	return NewMemoryDedupStore(0), nil
}
