package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/seddaluca/racing-analytics/internal/domain"
)

// UpsertLap creates or overwrites a lap keyed on (session, lap number).
// Re-running detection on a processed session therefore converges.
func (s *Store) UpsertLap(ctx context.Context, lap domain.Lap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(lap.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if lap.Number < 1 {
		return fmt.Errorf("lap number must be 1-based")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO laps (
	session_id, lap_number, lap_time_ms, start_time, end_time,
	sector1_ms, sector2_ms, sector3_ms, is_valid, is_best_lap
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, lap_number) DO UPDATE SET
	lap_time_ms = excluded.lap_time_ms,
	start_time = excluded.start_time,
	end_time = excluded.end_time,
	is_valid = excluded.is_valid
`,
		lap.SessionID,
		lap.Number,
		lap.LapTimeMS,
		toMillis(lap.StartTime),
		toMillis(lap.EndTime),
		nullInt(lap.Sector1MS),
		nullInt(lap.Sector2MS),
		nullInt(lap.Sector3MS),
		lap.Valid,
		lap.Best,
	)
	if err != nil {
		return fmt.Errorf("upsert lap: %w", err)
	}
	return nil
}

// ClearBestLap removes the best-lap flag from every lap of a session.
func (s *Store) ClearBestLap(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE laps SET is_best_lap = 0 WHERE session_id = ?
`, sessionID)
	if err != nil {
		return fmt.Errorf("clear best lap: %w", err)
	}
	return nil
}

// SetBestLap flags one lap of a session as the best.
func (s *Store) SetBestLap(ctx context.Context, sessionID string, lapNumber int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE laps SET is_best_lap = 1 WHERE session_id = ? AND lap_number = ?
`, sessionID, lapNumber)
	if err != nil {
		return fmt.Errorf("set best lap: %w", err)
	}
	return nil
}

// ListLaps lists a session's laps ordered by lap number.
func (s *Store) ListLaps(ctx context.Context, sessionID string) ([]domain.Lap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	session_id, lap_number, lap_time_ms, start_time, end_time,
	sector1_ms, sector2_ms, sector3_ms, is_valid, is_best_lap
FROM laps
WHERE session_id = ?
ORDER BY lap_number
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list laps: %w", err)
	}
	defer rows.Close()

	var laps []domain.Lap
	for rows.Next() {
		var (
			lap        domain.Lap
			start, end int64
			s1, s2, s3 sql.NullInt64
		)
		if err := rows.Scan(
			&lap.SessionID,
			&lap.Number,
			&lap.LapTimeMS,
			&start,
			&end,
			&s1, &s2, &s3,
			&lap.Valid,
			&lap.Best,
		); err != nil {
			return nil, fmt.Errorf("scan lap: %w", err)
		}
		lap.StartTime = fromMillis(start)
		lap.EndTime = fromMillis(end)
		lap.Sector1MS = int64Ptr(s1)
		lap.Sector2MS = int64Ptr(s2)
		lap.Sector3MS = int64Ptr(s3)
		laps = append(laps, lap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate laps: %w", err)
	}
	return laps, nil
}

func nullInt(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

func int64Ptr(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}
