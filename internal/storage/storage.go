// Package storage defines the persistence contracts shared by the telemetry
// capture and processor services.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/seddaluca/racing-analytics/internal/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// CatalogStore resolves circuits and vehicles.
type CatalogStore interface {
	CircuitByName(ctx context.Context, name string) (domain.Circuit, error)
	VehicleByName(ctx context.Context, name string) (domain.Vehicle, error)
	ListCircuits(ctx context.Context) ([]domain.Circuit, error)
	ListVehicles(ctx context.Context) ([]domain.Vehicle, error)
}

// SessionStore persists session records and their summary fields.
type SessionStore interface {
	CreateSession(ctx context.Context, session domain.Session) error
	Session(ctx context.Context, id string) (domain.Session, error)
	// EndSession sets the end time and derived duration of an open session.
	EndSession(ctx context.Context, id string, endedAt time.Time) error
	// ListUnprocessedFinished returns finished sessions whose metadata lacks
	// the processed marker, newest first.
	ListUnprocessedFinished(ctx context.Context, limit int) ([]string, error)
	// UpdateSessionSummary writes the lap-derived summary fields.
	UpdateSessionSummary(ctx context.Context, id string, bestLapMS int64, completedLaps int) error
	// MarkSessionProcessed stores the processed marker, processing timestamp,
	// telemetry stats blob, and speed summary.
	MarkSessionProcessed(ctx context.Context, id string, processedAt time.Time, stats domain.TelemetryStats) error
}

// TelemetryStore persists the append-only sample stream.
type TelemetryStore interface {
	InsertSample(ctx context.Context, sample domain.TelemetrySample) error
	// PositionTrace returns the time-ordered position+speed trace of a session.
	PositionTrace(ctx context.Context, sessionID string) ([]domain.TracePoint, error)
	// SessionStats aggregates a session's telemetry.
	SessionStats(ctx context.Context, sessionID string) (domain.TelemetryStats, error)
	// DeleteSamplesBefore removes samples strictly older than the cutoff and
	// reports how many rows were deleted.
	DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LapStore persists detected laps.
type LapStore interface {
	UpsertLap(ctx context.Context, lap domain.Lap) error
	ClearBestLap(ctx context.Context, sessionID string) error
	SetBestLap(ctx context.Context, sessionID string, lapNumber int) error
	ListLaps(ctx context.Context, sessionID string) ([]domain.Lap, error)
}

// DailyStats is the trailing-24h activity rollup.
type DailyStats struct {
	SessionsCount      int64   `json:"sessions_count"`
	VehiclesUsed       int64   `json:"vehicles_used"`
	CircuitsUsed       int64   `json:"circuits_used"`
	AvgSessionDuration float64 `json:"avg_session_duration"`
}

// LeaderboardEntry is one ranked session on a circuit leaderboard.
type LeaderboardEntry struct {
	SessionID     string    `json:"session_id"`
	VehicleName   string    `json:"vehicle_name"`
	BestLapTimeMS int64     `json:"best_lap_time_ms"`
	StartTime     time.Time `json:"start_time"`
	MaxSpeedKMH   float64   `json:"max_speed_kmh"`
}

// VehiclePerformance aggregates qualifying sessions for one vehicle.
type VehiclePerformance struct {
	TotalSessions int64   `json:"total_sessions"`
	AvgBestLapMS  float64 `json:"avg_best_lap_ms"`
	BestLapEverMS int64   `json:"best_lap_ever_ms"`
	AvgMaxSpeed   float64 `json:"avg_max_speed"`
	TopSpeed      float64 `json:"top_speed"`
}

// AnalyticsStore serves the aggregator's rollup queries.
type AnalyticsStore interface {
	DailyStats(ctx context.Context, since time.Time) (DailyStats, error)
	CircuitLeaderboard(ctx context.Context, circuitID int64, limit int) ([]LeaderboardEntry, error)
	VehiclePerformance(ctx context.Context, vehicleID int64) (VehiclePerformance, error)
}
