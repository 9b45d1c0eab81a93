package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/seddaluca/racing-analytics/internal/storage"
)

// DailyStats aggregates sessions started since the given instant.
func (s *Store) DailyStats(ctx context.Context, since time.Time) (storage.DailyStats, error) {
	if err := ctx.Err(); err != nil {
		return storage.DailyStats{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.DailyStats{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	COUNT(DISTINCT vehicle_id),
	COUNT(DISTINCT circuit_id),
	COALESCE(AVG(duration_seconds), 0)
FROM sessions
WHERE start_time >= ?
`, toMillis(since))

	var stats storage.DailyStats
	if err := row.Scan(
		&stats.SessionsCount,
		&stats.VehiclesUsed,
		&stats.CircuitsUsed,
		&stats.AvgSessionDuration,
	); err != nil {
		return storage.DailyStats{}, fmt.Errorf("scan daily stats: %w", err)
	}
	return stats, nil
}

// CircuitLeaderboard ranks a circuit's sessions by best lap time ascending,
// considering only sessions with a known best lap.
func (s *Store) CircuitLeaderboard(ctx context.Context, circuitID int64, limit int) ([]storage.LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT s.id, v.name, s.best_lap_time_ms, s.start_time, s.max_speed_kmh
FROM sessions s
JOIN vehicles v ON s.vehicle_id = v.id
WHERE s.circuit_id = ?
  AND s.best_lap_time_ms IS NOT NULL
ORDER BY s.best_lap_time_ms ASC
LIMIT ?
`, circuitID, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]storage.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var (
			entry storage.LeaderboardEntry
			start int64
		)
		if err := rows.Scan(&entry.SessionID, &entry.VehicleName, &entry.BestLapTimeMS, &start, &entry.MaxSpeedKMH); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entry.StartTime = fromMillis(start)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return entries, nil
}

// VehiclePerformance aggregates a vehicle's sessions with a known best lap.
func (s *Store) VehiclePerformance(ctx context.Context, vehicleID int64) (storage.VehiclePerformance, error) {
	if err := ctx.Err(); err != nil {
		return storage.VehiclePerformance{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.VehiclePerformance{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	COALESCE(AVG(best_lap_time_ms), 0),
	COALESCE(MIN(best_lap_time_ms), 0),
	COALESCE(AVG(max_speed_kmh), 0),
	COALESCE(MAX(max_speed_kmh), 0)
FROM sessions
WHERE vehicle_id = ?
  AND best_lap_time_ms IS NOT NULL
`, vehicleID)

	var perf storage.VehiclePerformance
	if err := row.Scan(
		&perf.TotalSessions,
		&perf.AvgBestLapMS,
		&perf.BestLapEverMS,
		&perf.AvgMaxSpeed,
		&perf.TopSpeed,
	); err != nil {
		return storage.VehiclePerformance{}, fmt.Errorf("scan vehicle performance: %w", err)
	}
	return perf, nil
}
