package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/seddaluca/racing-analytics/internal/domain"
)

func lapFor(sessionID string, number int, start time.Time, lapMS int64, valid bool) domain.Lap {
	return domain.Lap{
		SessionID: sessionID,
		Number:    number,
		LapTimeMS: lapMS,
		StartTime: start,
		EndTime:   start.Add(time.Duration(lapMS) * time.Millisecond),
		Valid:     valid,
	}
}

func TestUpsertLapIsIdempotent(t *testing.T) {
	store := openTempStore(t)
	start := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	seedSession(t, store, "sess-1", start)

	lap := lapFor("sess-1", 1, start, 62000, true)
	if err := store.UpsertLap(context.Background(), lap); err != nil {
		t.Fatalf("upsert lap: %v", err)
	}
	// Re-detection with a refined time must replace, not duplicate.
	lap.LapTimeMS = 61500
	if err := store.UpsertLap(context.Background(), lap); err != nil {
		t.Fatalf("upsert lap again: %v", err)
	}

	laps, err := store.ListLaps(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("list laps: %v", err)
	}
	if len(laps) != 1 {
		t.Fatalf("laps = %d, want 1", len(laps))
	}
	if laps[0].LapTimeMS != 61500 {
		t.Fatalf("lap time = %d, want 61500", laps[0].LapTimeMS)
	}
}

func TestUpsertLapKeepsBestFlagOnUpdate(t *testing.T) {
	store := openTempStore(t)
	start := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	seedSession(t, store, "sess-1", start)

	if err := store.UpsertLap(context.Background(), lapFor("sess-1", 1, start, 62000, true)); err != nil {
		t.Fatalf("upsert lap: %v", err)
	}
	if err := store.SetBestLap(context.Background(), "sess-1", 1); err != nil {
		t.Fatalf("set best lap: %v", err)
	}
	// An upsert carrying Best=false must not clobber the flag; only
	// ClearBestLap/SetBestLap move it.
	if err := store.UpsertLap(context.Background(), lapFor("sess-1", 1, start, 61800, true)); err != nil {
		t.Fatalf("re-upsert lap: %v", err)
	}

	laps, err := store.ListLaps(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("list laps: %v", err)
	}
	if len(laps) != 1 || !laps[0].Best {
		t.Fatalf("expected lap 1 to stay best, got %+v", laps)
	}
}

func TestBestLapReassignment(t *testing.T) {
	store := openTempStore(t)
	start := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	seedSession(t, store, "sess-1", start)

	for i, lapMS := range []int64{65000, 62000, 63000} {
		lap := lapFor("sess-1", i+1, start.Add(time.Duration(i)*time.Minute), lapMS, true)
		if err := store.UpsertLap(context.Background(), lap); err != nil {
			t.Fatalf("upsert lap %d: %v", i+1, err)
		}
	}

	if err := store.SetBestLap(context.Background(), "sess-1", 1); err != nil {
		t.Fatalf("set best lap: %v", err)
	}
	if err := store.ClearBestLap(context.Background(), "sess-1"); err != nil {
		t.Fatalf("clear best lap: %v", err)
	}
	if err := store.SetBestLap(context.Background(), "sess-1", 2); err != nil {
		t.Fatalf("set best lap: %v", err)
	}

	laps, err := store.ListLaps(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("list laps: %v", err)
	}
	var best []int
	for _, lap := range laps {
		if lap.Best {
			best = append(best, lap.Number)
		}
	}
	if len(best) != 1 || best[0] != 2 {
		t.Fatalf("best laps = %v, want [2]", best)
	}
}

func TestUpsertLapRejectsBadInput(t *testing.T) {
	store := openTempStore(t)
	start := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	if err := store.UpsertLap(context.Background(), lapFor("", 1, start, 62000, true)); err == nil {
		t.Fatal("expected error for missing session id")
	}
	if err := store.UpsertLap(context.Background(), lapFor("sess-1", 0, start, 62000, true)); err == nil {
		t.Fatal("expected error for zero lap number")
	}
}
