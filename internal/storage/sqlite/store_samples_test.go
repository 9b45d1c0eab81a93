package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/seddaluca/racing-analytics/internal/domain"
)

func sampleAt(sessionID string, at time.Time, x float64, speed float64) domain.TelemetrySample {
	return domain.TelemetrySample{
		SessionID: sessionID,
		Time:      at,
		Position:  domain.Vector{X: x, Y: 0, Z: 1},
		SpeedKMH:  speed,
		EngineRPM: 5000,
		Throttle:  0.8,
		Brake:     0.1,
		OnTrack:   true,
		Status:    domain.StatusActive,
	}
}

func TestInsertSampleValidation(t *testing.T) {
	store := openTempStore(t)

	err := store.InsertSample(context.Background(), domain.TelemetrySample{Time: time.Now()})
	if err == nil {
		t.Fatal("expected error for missing session id")
	}
	err = store.InsertSample(context.Background(), domain.TelemetrySample{SessionID: "sess-1"})
	if err == nil {
		t.Fatal("expected error for zero sample time")
	}
}

func TestPositionTraceOrdersByTime(t *testing.T) {
	store := openTempStore(t)
	start := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	seedSession(t, store, "sess-1", start)

	// Insert out of order; the trace must come back time-sorted.
	for _, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
		sample := sampleAt("sess-1", start.Add(offset), float64(offset/time.Second), 100)
		if err := store.InsertSample(context.Background(), sample); err != nil {
			t.Fatalf("insert sample: %v", err)
		}
	}

	trace, err := store.PositionTrace(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("position trace: %v", err)
	}
	if len(trace) != 3 {
		t.Fatalf("trace length = %d, want 3", len(trace))
	}
	for i := 1; i < len(trace); i++ {
		if trace[i].Time.Before(trace[i-1].Time) {
			t.Fatalf("trace not ordered at index %d", i)
		}
	}
	if trace[0].X != 0 || trace[1].X != 1 || trace[2].X != 2 {
		t.Fatalf("trace xs = %v/%v/%v, want 0/1/2", trace[0].X, trace[1].X, trace[2].X)
	}
}

func TestSessionStatsAggregates(t *testing.T) {
	store := openTempStore(t)
	start := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	seedSession(t, store, "sess-1", start)

	speeds := []float64{100, 150, 200}
	for i, speed := range speeds {
		sample := sampleAt("sess-1", start.Add(time.Duration(i)*time.Second), 0, speed)
		if err := store.InsertSample(context.Background(), sample); err != nil {
			t.Fatalf("insert sample: %v", err)
		}
	}

	stats, err := store.SessionStats(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("session stats: %v", err)
	}
	if stats.DataPoints != 3 {
		t.Fatalf("data points = %d, want 3", stats.DataPoints)
	}
	if stats.MaxSpeed != 200 {
		t.Fatalf("max speed = %v, want 200", stats.MaxSpeed)
	}
	if stats.AvgSpeed != 150 {
		t.Fatalf("avg speed = %v, want 150", stats.AvgSpeed)
	}
}

func TestSessionStatsEmptySession(t *testing.T) {
	store := openTempStore(t)

	stats, err := store.SessionStats(context.Background(), "nothing-here")
	if err != nil {
		t.Fatalf("session stats: %v", err)
	}
	if stats.DataPoints != 0 || stats.MaxSpeed != 0 || stats.AvgSpeed != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestDeleteSamplesBeforeIsStrict(t *testing.T) {
	store := openTempStore(t)
	start := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	seedSession(t, store, "sess-1", start)

	cutoff := start.Add(time.Minute)
	times := []time.Time{
		cutoff.Add(-time.Second), // older, deleted
		cutoff,                   // exactly at cutoff, kept
		cutoff.Add(time.Second),  // newer, kept
	}
	for _, at := range times {
		if err := store.InsertSample(context.Background(), sampleAt("sess-1", at, 0, 100)); err != nil {
			t.Fatalf("insert sample: %v", err)
		}
	}

	deleted, err := store.DeleteSamplesBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("delete samples: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	trace, err := store.PositionTrace(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("position trace: %v", err)
	}
	if len(trace) != 2 {
		t.Fatalf("remaining samples = %d, want 2", len(trace))
	}
	if !trace[0].Time.Equal(cutoff) {
		t.Fatalf("oldest remaining = %v, want %v", trace[0].Time, cutoff)
	}
}
