package shared

import (
	"context"
	"time"
)

// IdempotencyStore tracks operation keys that have already been applied so a
// retried request does not execute twice.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)
}
