package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys that have already been handled, such as provider webhook event ids
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Forget removes a key so a failed handler can be retried
	Forget(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// DefaultIdempotencyTTL is how long a processed key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour
