// Package retention reclaims old telemetry rows and stale cache entries.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/seddaluca/racing-analytics/internal/cache"
)

// tempPrefix namespaces scratch cache entries any component may write; the
// sweeper clears the whole namespace on every pass.
const tempPrefix = "temp:"

// defaultRetention keeps a month of raw telemetry.
const defaultRetention = 30 * 24 * time.Hour

// Store deletes telemetry rows older than a cutoff.
type Store interface {
	DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper applies the telemetry retention window and cache housekeeping.
type Sweeper struct {
	store     Store
	cache     cache.Cache
	retention time.Duration
	now       func() time.Time
}

// New wires a sweeper. A non-positive retention falls back to 30 days.
func New(store Store, c cache.Cache, retention time.Duration) *Sweeper {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Sweeper{store: store, cache: c, retention: retention, now: time.Now}
}

// Run performs one cleanup pass: drop telemetry past the retention window,
// clear the temp cache namespace, and sweep expired cache entries. The
// telemetry and cache sweeps are independent; one failing never skips the
// other.
func (s *Sweeper) Run(ctx context.Context) error {
	return errors.Join(s.sweepTelemetry(ctx), s.sweepCache(ctx))
}

func (s *Sweeper) sweepTelemetry(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.retention)
	deleted, err := s.store.DeleteSamplesBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete old telemetry: %w", err)
	}
	if deleted > 0 {
		log.Printf("retention removed %d telemetry rows older than %s", deleted, cutoff.Format(time.RFC3339))
	}
	return nil
}

func (s *Sweeper) sweepCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	temp, err := s.cache.DeletePrefix(ctx, tempPrefix)
	if err != nil {
		return fmt.Errorf("clear temp cache entries: %w", err)
	}
	purged, err := s.cache.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge expired cache entries: %w", err)
	}
	if temp > 0 || purged > 0 {
		log.Printf("cache cleanup removed %d temp and %d expired entries", temp, purged)
	}
	return nil
}
