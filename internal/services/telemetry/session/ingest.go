package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/seddaluca/racing-analytics/internal/broadcast"
	"github.com/seddaluca/racing-analytics/internal/domain"
	"github.com/seddaluca/racing-analytics/internal/feed"
)

var logf = log.Printf

// transientErrorPause is how long the loop backs off after a storage or
// feed hiccup before trying the next sample.
const transientErrorPause = 100 * time.Millisecond

// VehicleDescriptor identifies what is being driven, resolved once at
// session start rather than per sample.
type VehicleDescriptor struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Category     string `json:"category"`
	Circuit      string `json:"circuit"`
}

// TireTemps carries the four corner temperatures in FL/FR/RL/RR order.
type TireTemps struct {
	FrontLeft  float64 `json:"front_left"`
	FrontRight float64 `json:"front_right"`
	RearLeft   float64 `json:"rear_left"`
	RearRight  float64 `json:"rear_right"`
}

// LiveSample is the snapshot pushed to websocket subscribers and cached as
// the latest reading of the active session.
type LiveSample struct {
	SessionID      string              `json:"session_id"`
	Time           time.Time           `json:"time"`
	Position       domain.Vector       `json:"position"`
	SpeedKMH       float64             `json:"speed_kmh"`
	EngineRPM      float64             `json:"engine_rpm"`
	Throttle       float64             `json:"throttle"`
	Brake          float64             `json:"brake"`
	Gear           string              `json:"gear"`
	FuelPercentage float64             `json:"fuel_percentage"`
	TireTemps      TireTemps           `json:"tire_temps"`
	OnTrack        bool                `json:"on_track"`
	RevLimiter     bool                `json:"rev_limiter"`
	Vehicle        VehicleDescriptor   `json:"vehicle"`
	Status         domain.SampleStatus `json:"status"`
}

func liveSampleFrom(row domain.TelemetrySample, vehicle VehicleDescriptor) LiveSample {
	return LiveSample{
		SessionID:      row.SessionID,
		Time:           row.Time,
		Position:       row.Position,
		SpeedKMH:       row.SpeedKMH,
		EngineRPM:      row.EngineRPM,
		Throttle:       row.Throttle,
		Brake:          row.Brake,
		Gear:           row.GearLabel(),
		FuelPercentage: row.FuelPercentage(),
		TireTemps: TireTemps{
			FrontLeft:  row.TireTempFL,
			FrontRight: row.TireTempFR,
			RearLeft:   row.TireTempRL,
			RearRight:  row.TireTempRR,
		},
		OnTrack:    row.OnTrack,
		RevLimiter: row.RevLimiter,
		Vehicle:    vehicle,
		Status:     row.Status,
	}
}

// ingest pumps feed samples into storage, the live cache, and the hub until
// the loop context is canceled or the feed closes.
func (m *Manager) ingest(ctx context.Context, active *activeSession) {
	defer close(active.done)
	sessionID := active.session.ID
	vehicle := VehicleDescriptor{
		Name:         active.vehicle.Name,
		Manufacturer: active.vehicle.Manufacturer,
		Category:     active.vehicle.Category,
		Circuit:      active.circuit.Name,
	}

	for {
		sample, err := m.source.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if errors.Is(err, feed.ErrClosed) {
				logf("telemetry feed closed, releasing session %s", sessionID)
				m.releaseAfterFeedClose(context.Background(), sessionID)
				return
			}
			logf("read sample: %v", err)
			if !pause(ctx, transientErrorPause) {
				return
			}
			continue
		}
		if sample == nil {
			continue
		}

		row := domain.Normalize(sessionID, *sample)
		if err := m.store.InsertSample(ctx, row); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logf("persist sample: %v", err)
			if !pause(ctx, transientErrorPause) {
				return
			}
			continue
		}

		m.publishLive(ctx, row, vehicle)
	}
}

// publishLive refreshes the cached snapshot and fans the sample out. Both
// are best-effort; a failure never stalls ingestion.
func (m *Manager) publishLive(ctx context.Context, row domain.TelemetrySample, vehicle VehicleDescriptor) {
	live := liveSampleFrom(row, vehicle)

	if m.cache != nil {
		payload, err := json.Marshal(live)
		if err != nil {
			logf("marshal live sample: %v", err)
		} else if err := m.cache.Set(ctx, "latest_telemetry:"+row.SessionID, payload, latestTelemetryTTL); err != nil {
			if !errors.Is(err, context.Canceled) {
				logf("cache live sample: %v", err)
			}
		}
	}

	if m.hub != nil {
		if err := m.hub.Publish(broadcast.EventTelemetryData, live); err != nil {
			logf("broadcast live sample: %v", err)
		}
	}
}

func pause(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
