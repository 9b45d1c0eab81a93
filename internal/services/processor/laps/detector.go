// Package laps detects lap boundaries in a session's position trace using
// start-line proximity.
package laps

import (
	"math"
	"time"

	"github.com/seddaluca/racing-analytics/internal/domain"
)

// Config tunes the detector. Zero values fall back to defaults.
type Config struct {
	// ProximityMeters is the planar distance to the start line within which
	// a pass counts as a crossing.
	ProximityMeters float64
	// MinLapGap is the minimum time between two crossings. Passes inside
	// the window are the same crossing seen across adjacent samples.
	MinLapGap time.Duration
	// MinSamples is the minimum trace length worth analyzing.
	MinSamples int
}

const (
	defaultProximityMeters = 50.0
	defaultMinLapGap       = 30 * time.Second
	defaultMinSamples      = 100
)

func (c Config) normalized() Config {
	if c.ProximityMeters <= 0 {
		c.ProximityMeters = defaultProximityMeters
	}
	if c.MinLapGap <= 0 {
		c.MinLapGap = defaultMinLapGap
	}
	if c.MinSamples <= 0 {
		c.MinSamples = defaultMinSamples
	}
	return c
}

// Detect splits a time-ordered trace into laps. The start line is the first
// sample's position; each later pass within ProximityMeters of it, at least
// MinLapGap after the previous crossing, closes a lap. Samples after the
// last crossing form a trailing partial lap marked invalid. Traces shorter
// than MinSamples produce no laps.
func Detect(trace []domain.TracePoint, cfg Config) []domain.Lap {
	cfg = cfg.normalized()
	if len(trace) < cfg.MinSamples {
		return nil
	}

	origin := trace[0]
	crossings := []time.Time{origin.Time}
	lastCrossing := origin.Time
	for _, point := range trace[1:] {
		if point.Time.Sub(lastCrossing) < cfg.MinLapGap {
			continue
		}
		if planarDistance(point, origin) <= cfg.ProximityMeters {
			crossings = append(crossings, point.Time)
			lastCrossing = point.Time
		}
	}

	var laps []domain.Lap
	for i := 1; i < len(crossings); i++ {
		start, end := crossings[i-1], crossings[i]
		laps = append(laps, domain.Lap{
			Number:    i,
			LapTimeMS: end.Sub(start).Milliseconds(),
			StartTime: start,
			EndTime:   end,
			Valid:     true,
		})
	}

	// Samples past the last crossing are an unfinished lap. Recorded for the
	// trace to be complete, but never counted as a result. A trace that
	// never returns to the start line has no laps at all, partial or
	// otherwise.
	finalTime := trace[len(trace)-1].Time
	if len(crossings) > 1 && finalTime.After(lastCrossing) {
		laps = append(laps, domain.Lap{
			Number:    len(crossings),
			LapTimeMS: finalTime.Sub(lastCrossing).Milliseconds(),
			StartTime: lastCrossing,
			EndTime:   finalTime,
			Valid:     false,
		})
	}

	return laps
}

// planarDistance measures proximity on the horizontal plane only; elevation
// changes near the start line must not mask a crossing.
func planarDistance(a, b domain.TracePoint) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
