package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seddaluca/racing-analytics/internal/domain"
	"github.com/seddaluca/racing-analytics/internal/storage"
)

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if session.StartTime.IsZero() {
		return fmt.Errorf("session start time is required")
	}
	if strings.TrimSpace(session.GameMode) == "" {
		session.GameMode = domain.GameModeTimeTrial
	}

	metadata, err := session.MarshalMetadata()
	if err != nil {
		return fmt.Errorf("marshal session metadata: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (
	id,
	circuit_id,
	vehicle_id,
	start_time,
	end_time,
	duration_seconds,
	game_mode,
	completed_laps,
	best_lap_time_ms,
	max_speed_kmh,
	avg_speed_kmh,
	session_metadata
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		session.ID,
		session.CircuitID,
		session.VehicleID,
		toMillis(session.StartTime),
		toNullMillis(session.EndTime),
		session.DurationSeconds,
		session.GameMode,
		session.CompletedLaps,
		bestLapToNull(session.BestLapTimeMS),
		session.MaxSpeedKMH,
		session.AvgSpeedKMH,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Session fetches one session by id.
func (s *Store) Session(ctx context.Context, id string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Session{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return domain.Session{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT
	id,
	circuit_id,
	vehicle_id,
	start_time,
	end_time,
	duration_seconds,
	game_mode,
	completed_laps,
	best_lap_time_ms,
	max_speed_kmh,
	avg_speed_kmh,
	session_metadata
FROM sessions
WHERE id = ?
`, id)

	var (
		session   domain.Session
		startTime int64
		endTime   sql.NullInt64
		bestLap   sql.NullInt64
		metadata  string
	)
	if err := row.Scan(
		&session.ID,
		&session.CircuitID,
		&session.VehicleID,
		&startTime,
		&endTime,
		&session.DurationSeconds,
		&session.GameMode,
		&session.CompletedLaps,
		&bestLap,
		&session.MaxSpeedKMH,
		&session.AvgSpeedKMH,
		&metadata,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, storage.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("scan session: %w", err)
	}

	session.StartTime = fromMillis(startTime)
	session.EndTime = fromNullMillis(endTime)
	if bestLap.Valid {
		session.BestLapTimeMS = bestLap.Int64
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &session.Metadata); err != nil {
			return domain.Session{}, fmt.Errorf("unmarshal session metadata: %w", err)
		}
	}
	return session, nil
}

// EndSession sets the end time and the derived duration of an open session.
func (s *Store) EndSession(ctx context.Context, id string, endedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("session id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE sessions
SET end_time = ?,
    duration_seconds = (? - start_time) / 1000.0
WHERE id = ?
`, toMillis(endedAt), toMillis(endedAt), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListUnprocessedFinished returns finished sessions whose metadata lacks the
// processed marker, newest first.
func (s *Store) ListUnprocessedFinished(ctx context.Context, limit int) ([]string, error) {
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
SELECT id
FROM sessions
WHERE end_time IS NOT NULL
  AND json_extract(session_metadata, '$.processed') IS NULL
ORDER BY end_time DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed sessions: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return ids, nil
}

// UpdateSessionSummary writes the lap-derived summary fields.
func (s *Store) UpdateSessionSummary(ctx context.Context, id string, bestLapMS int64, completedLaps int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE sessions
SET best_lap_time_ms = ?,
    completed_laps = ?
WHERE id = ?
`, bestLapToNull(bestLapMS), completedLaps, id)
	if err != nil {
		return fmt.Errorf("update session summary: %w", err)
	}
	return nil
}

// MarkSessionProcessed stores the processed marker, telemetry stats blob, and
// speed summary in one update so the scan never reconsiders the session.
func (s *Store) MarkSessionProcessed(ctx context.Context, id string, processedAt time.Time, stats domain.TelemetryStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("session id is required")
	}

	processedAt = processedAt.UTC()
	metadata, err := json.Marshal(domain.SessionMetadata{
		Processed:   true,
		ProcessedAt: &processedAt,
		Stats:       &stats,
	})
	if err != nil {
		return fmt.Errorf("marshal session metadata: %w", err)
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE sessions
SET session_metadata = ?,
    max_speed_kmh = ?,
    avg_speed_kmh = ?
WHERE id = ?
`, string(metadata), stats.MaxSpeed, stats.AvgSpeed, id)
	if err != nil {
		return fmt.Errorf("mark session processed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark processed rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func bestLapToNull(ms int64) sql.NullInt64 {
	if ms <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: ms, Valid: true}
}
