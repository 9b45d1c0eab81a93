// Package sessions turns finished recordings into lap results and summary
// stats, marking each session processed exactly once.
package sessions

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/seddaluca/racing-analytics/internal/services/processor/laps"
	"github.com/seddaluca/racing-analytics/internal/storage"
)

// Store is the slice of persistence the processor needs.
type Store interface {
	storage.SessionStore
	storage.TelemetryStore
	storage.LapStore
}

// Processor scans finished sessions and derives their results.
type Processor struct {
	store    Store
	detector laps.Config
	now      func() time.Time
}

// New wires a processor with the given detection thresholds.
func New(store Store, detector laps.Config) *Processor {
	return &Processor{store: store, detector: detector, now: time.Now}
}

// ProcessBatch handles up to limit unprocessed finished sessions. A failing
// session is logged and skipped so one bad recording cannot wedge the scan.
func (p *Processor) ProcessBatch(ctx context.Context, limit int) (int, error) {
	ids, err := p.store.ListUnprocessedFinished(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list unprocessed sessions: %w", err)
	}

	processed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if err := p.ProcessSession(ctx, id); err != nil {
			log.Printf("process session %s: %v", id, err)
			continue
		}
		processed++
	}
	return processed, nil
}

// ProcessSession derives laps and stats for one session. Re-running on an
// already-processed session converges on the same results: laps upsert by
// number and the best-lap flag is recomputed from scratch.
func (p *Processor) ProcessSession(ctx context.Context, sessionID string) error {
	trace, err := p.store.PositionTrace(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load position trace: %w", err)
	}

	detected := laps.Detect(trace, p.detector)

	bestNumber, bestTime := 0, int64(0)
	completed := 0
	for _, lap := range detected {
		lap.SessionID = sessionID
		if err := p.store.UpsertLap(ctx, lap); err != nil {
			return fmt.Errorf("upsert lap %d: %w", lap.Number, err)
		}
		if !lap.Valid {
			continue
		}
		completed++
		if bestNumber == 0 || lap.LapTimeMS < bestTime {
			bestNumber, bestTime = lap.Number, lap.LapTimeMS
		}
	}

	if err := p.store.ClearBestLap(ctx, sessionID); err != nil {
		return fmt.Errorf("clear best lap: %w", err)
	}
	if bestNumber > 0 {
		if err := p.store.SetBestLap(ctx, sessionID, bestNumber); err != nil {
			return fmt.Errorf("set best lap: %w", err)
		}
	}
	if err := p.store.UpdateSessionSummary(ctx, sessionID, bestTime, completed); err != nil {
		return fmt.Errorf("update session summary: %w", err)
	}

	stats, err := p.store.SessionStats(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("aggregate session stats: %w", err)
	}
	if err := p.store.MarkSessionProcessed(ctx, sessionID, p.now().UTC(), stats); err != nil {
		return fmt.Errorf("mark session processed: %w", err)
	}
	return nil
}
