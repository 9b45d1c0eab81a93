// Package cache defines the TTL key-value contract used for hot analytics
// results and the latest-telemetry snapshot.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a key is absent or its entry has expired.
var ErrNotFound = errors.New("cache entry not found")

// Cache is a TTL key-value store. Values are opaque JSON payloads; expiry is
// enforced on read, with PurgeExpired reclaiming space in the background.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key with the given prefix and reports how
	// many entries were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// PurgeExpired removes entries whose TTL has lapsed and reports how many
	// entries were removed.
	PurgeExpired(ctx context.Context) (int, error)
}
