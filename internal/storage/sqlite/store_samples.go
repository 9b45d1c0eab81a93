package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/seddaluca/racing-analytics/internal/domain"
)

// InsertSample appends one normalized telemetry row.
func (s *Store) InsertSample(ctx context.Context, sample domain.TelemetrySample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(sample.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if sample.Time.IsZero() {
		return fmt.Errorf("sample time is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO telemetry (
	time, session_id,
	position_x, position_y, position_z,
	velocity_x, velocity_y, velocity_z,
	rotation_pitch, rotation_yaw, rotation_roll,
	angular_velocity_x, angular_velocity_y, angular_velocity_z,
	speed_kmh, throttle, brake, steering, clutch,
	engine_rpm, current_gear, suggested_gear,
	fuel_level, fuel_capacity, oil_temperature, water_temperature, oil_pressure,
	tire_fl_temp, tire_fr_temp, tire_rl_temp, tire_rr_temp,
	tire_fl_suspension, tire_fr_suspension, tire_rl_suspension, tire_rr_suspension,
	car_on_track, paused, in_gear, rev_limiter_active,
	body_height, turbo_boost, time_of_day, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		toMillis(sample.Time),
		sample.SessionID,
		sample.Position.X, sample.Position.Y, sample.Position.Z,
		sample.Velocity.X, sample.Velocity.Y, sample.Velocity.Z,
		sample.Rotation.Pitch, sample.Rotation.Yaw, sample.Rotation.Roll,
		sample.AngularVelocity.X, sample.AngularVelocity.Y, sample.AngularVelocity.Z,
		sample.SpeedKMH, sample.Throttle, sample.Brake, sample.Steering, sample.Clutch,
		sample.EngineRPM, sample.CurrentGear, sample.SuggestedGear,
		sample.FuelLevel, sample.FuelCapacity, sample.OilTemperature, sample.WaterTemperature, sample.OilPressure,
		sample.TireTempFL, sample.TireTempFR, sample.TireTempRL, sample.TireTempRR,
		sample.SuspensionFL, sample.SuspensionFR, sample.SuspensionRL, sample.SuspensionRR,
		sample.OnTrack, sample.Paused, sample.InGear, sample.RevLimiter,
		sample.RideHeight, sample.TurboBoost, sample.TimeOfDay, string(sample.Status),
	)
	if err != nil {
		return fmt.Errorf("insert telemetry sample: %w", err)
	}
	return nil
}

// PositionTrace returns the time-ordered position+speed trace of a session.
func (s *Store) PositionTrace(ctx context.Context, sessionID string) ([]domain.TracePoint, error) {
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
SELECT time, position_x, position_y, position_z, speed_kmh
FROM telemetry
WHERE session_id = ?
ORDER BY time
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query position trace: %w", err)
	}
	defer rows.Close()

	var trace []domain.TracePoint
	for rows.Next() {
		var (
			point  domain.TracePoint
			millis int64
		)
		if err := rows.Scan(&millis, &point.X, &point.Y, &point.Z, &point.SpeedKMH); err != nil {
			return nil, fmt.Errorf("scan trace point: %w", err)
		}
		point.Time = fromMillis(millis)
		trace = append(trace, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return trace, nil
}

// SessionStats aggregates a session's telemetry.
func (s *Store) SessionStats(ctx context.Context, sessionID string) (domain.TelemetryStats, error) {
	if err := ctx.Err(); err != nil {
		return domain.TelemetryStats{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.TelemetryStats{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return domain.TelemetryStats{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT
	COALESCE(MAX(speed_kmh), 0),
	COALESCE(AVG(speed_kmh), 0),
	COALESCE(MAX(engine_rpm), 0),
	COALESCE(AVG(engine_rpm), 0),
	COALESCE(AVG(throttle), 0),
	COALESCE(AVG(brake), 0),
	COUNT(*)
FROM telemetry
WHERE session_id = ?
`, sessionID)

	var stats domain.TelemetryStats
	if err := row.Scan(
		&stats.MaxSpeed,
		&stats.AvgSpeed,
		&stats.MaxRPM,
		&stats.AvgRPM,
		&stats.AvgThrottle,
		&stats.AvgBrake,
		&stats.DataPoints,
	); err != nil {
		return domain.TelemetryStats{}, fmt.Errorf("scan session stats: %w", err)
	}
	return stats, nil
}

// DeleteSamplesBefore removes samples strictly older than the cutoff.
func (s *Store) DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM telemetry WHERE time < ?
`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete old telemetry: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleted rows affected: %w", err)
	}
	return deleted, nil
}
