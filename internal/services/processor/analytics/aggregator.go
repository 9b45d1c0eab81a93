// Package analytics precomputes rollups into the TTL cache: daily activity,
// per-circuit leaderboards, and per-vehicle performance.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/seddaluca/racing-analytics/internal/cache"
	"github.com/seddaluca/racing-analytics/internal/storage"
)

// Cache key layout. Readers depend on these names staying stable.
const (
	DailyKey          = "daily_analytics"
	LeaderboardPrefix = "leaderboard:circuit:"
	VehicleKeyPrefix  = "vehicle_stats:"
)

const (
	dailyTTL        = 24 * time.Hour
	leaderboardTTL  = time.Hour
	vehicleTTL      = time.Hour
	leaderboardSize = 10
	dailyWindow     = 24 * time.Hour
)

// Store is the slice of persistence the aggregator needs.
type Store interface {
	storage.AnalyticsStore
	storage.CatalogStore
}

// Aggregator refreshes cached rollups from the session archive.
type Aggregator struct {
	store Store
	cache cache.Cache
	now   func() time.Time
}

// New wires an aggregator over the store and cache.
func New(store Store, c cache.Cache) *Aggregator {
	return &Aggregator{store: store, cache: c, now: time.Now}
}

// Run refreshes all rollups. Each job runs even when an earlier one fails;
// the combined error drives the caller's retry schedule.
func (a *Aggregator) Run(ctx context.Context) error {
	return errors.Join(
		a.RefreshDaily(ctx),
		a.RefreshLeaderboards(ctx),
		a.RefreshVehicleStats(ctx),
	)
}

// dailyReport is the cached daily_analytics payload.
type dailyReport struct {
	Date               string    `json:"date"`
	SessionsCount      int64     `json:"sessions_count"`
	VehiclesUsed       int64     `json:"vehicles_used"`
	CircuitsUsed       int64     `json:"circuits_used"`
	AvgSessionDuration float64   `json:"avg_session_duration"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// RefreshDaily caches the trailing-24h activity rollup.
func (a *Aggregator) RefreshDaily(ctx context.Context) error {
	now := a.now().UTC()
	stats, err := a.store.DailyStats(ctx, now.Add(-dailyWindow))
	if err != nil {
		return fmt.Errorf("aggregate daily stats: %w", err)
	}

	report := dailyReport{
		Date:               now.Format("2006-01-02"),
		SessionsCount:      stats.SessionsCount,
		VehiclesUsed:       stats.VehiclesUsed,
		CircuitsUsed:       stats.CircuitsUsed,
		AvgSessionDuration: stats.AvgSessionDuration,
		GeneratedAt:        now,
	}
	return a.cacheJSON(ctx, DailyKey, report, dailyTTL)
}

// RefreshLeaderboards caches the top sessions of every circuit. A circuit
// that fails is logged and skipped so the rest still refresh.
func (a *Aggregator) RefreshLeaderboards(ctx context.Context) error {
	circuits, err := a.store.ListCircuits(ctx)
	if err != nil {
		return fmt.Errorf("list circuits: %w", err)
	}

	for _, circuit := range circuits {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := a.store.CircuitLeaderboard(ctx, circuit.ID, leaderboardSize)
		if err != nil {
			log.Printf("leaderboard for circuit %d: %v", circuit.ID, err)
			continue
		}
		key := LeaderboardPrefix + strconv.FormatInt(circuit.ID, 10)
		if err := a.cacheJSON(ctx, key, entries, leaderboardTTL); err != nil {
			log.Printf("cache leaderboard for circuit %d: %v", circuit.ID, err)
		}
	}
	return nil
}

// RefreshVehicleStats caches per-vehicle performance aggregates.
func (a *Aggregator) RefreshVehicleStats(ctx context.Context) error {
	vehicles, err := a.store.ListVehicles(ctx)
	if err != nil {
		return fmt.Errorf("list vehicles: %w", err)
	}

	for _, vehicle := range vehicles {
		if err := ctx.Err(); err != nil {
			return err
		}
		perf, err := a.store.VehiclePerformance(ctx, vehicle.ID)
		if err != nil {
			log.Printf("performance for vehicle %d: %v", vehicle.ID, err)
			continue
		}
		key := VehicleKeyPrefix + strconv.FormatInt(vehicle.ID, 10)
		if err := a.cacheJSON(ctx, key, perf, vehicleTTL); err != nil {
			log.Printf("cache performance for vehicle %d: %v", vehicle.ID, err)
		}
	}
	return nil
}

func (a *Aggregator) cacheJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := a.cache.Set(ctx, key, payload, ttl); err != nil {
		return fmt.Errorf("cache %s: %w", key, err)
	}
	return nil
}
