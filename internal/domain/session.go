package domain

import (
	"encoding/json"
	"time"
)

// GameModeTimeTrial is the default mode when a start request omits one.
const GameModeTimeTrial = "TIME_TRIAL"

// Circuit is one track in the catalog.
type Circuit struct {
	ID           int64
	Name         string
	Country      string
	LengthMeters float64
}

// Vehicle is one car in the catalog.
type Vehicle struct {
	ID           int64
	Name         string
	Manufacturer string
	Category     string
	GameCarID    int
}

// TelemetryStats summarizes a session's telemetry at processing time.
type TelemetryStats struct {
	MaxSpeed    float64 `json:"max_speed"`
	AvgSpeed    float64 `json:"avg_speed"`
	MaxRPM      float64 `json:"max_rpm"`
	AvgRPM      float64 `json:"avg_rpm"`
	AvgThrottle float64 `json:"avg_throttle"`
	AvgBrake    float64 `json:"avg_brake"`
	DataPoints  int64   `json:"data_points"`
}

// SessionMetadata is the free-form blob stored alongside a session. The
// processed marker keeps the processor scan from reconsidering a session.
type SessionMetadata struct {
	Processed   bool            `json:"processed,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	Stats       *TelemetryStats `json:"telemetry_stats,omitempty"`
}

// Session is one recording interval for a circuit/vehicle pairing. EndTime
// nil means the session is still open. BestLapTimeMS zero means no best lap
// has been computed yet.
type Session struct {
	ID              string
	CircuitID       int64
	VehicleID       int64
	StartTime       time.Time
	EndTime         *time.Time
	DurationSeconds float64
	GameMode        string
	CompletedLaps   int
	BestLapTimeMS   int64
	MaxSpeedKMH     float64
	AvgSpeedKMH     float64
	Metadata        SessionMetadata
}

// MarshalMetadata encodes the metadata blob for storage.
func (s Session) MarshalMetadata() (string, error) {
	raw, err := json.Marshal(s.Metadata)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Lap is one detected interval between consecutive start-line crossings.
// Sector times stay nil until a sector-aware detector computes them.
type Lap struct {
	SessionID string
	Number    int
	LapTimeMS int64
	StartTime time.Time
	EndTime   time.Time
	Sector1MS *int64
	Sector2MS *int64
	Sector3MS *int64
	Valid     bool
	Best      bool
}

// TracePoint is the slice of a telemetry row the lap detector consumes.
type TracePoint struct {
	Time     time.Time
	X        float64
	Y        float64
	Z        float64
	SpeedKMH float64
}
