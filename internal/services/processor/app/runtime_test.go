package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunEveryRunsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		runEvery(ctx, "test", time.Hour, time.Hour, func(context.Context) error {
			runs.Add(1)
			cancel()
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
	if runs.Load() != 1 {
		t.Fatalf("runs = %d, want 1", runs.Load())
	}
}

func TestRunEveryRetriesAfterFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		runEvery(ctx, "test", time.Hour, time.Millisecond, func(context.Context) error {
			if runs.Add(1) >= 3 {
				cancel()
				return nil
			}
			return errors.New("transient")
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not reach the retried run")
	}
	// Two failures retried on the short delay, then the succeeding run.
	if runs.Load() != 3 {
		t.Fatalf("runs = %d, want 3", runs.Load())
	}
}

func TestRunEveryStopsWhenCanceledDuringJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		runEvery(ctx, "test", time.Millisecond, time.Millisecond, func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestRuntimeConfigDefaults(t *testing.T) {
	cfg := RuntimeConfig{}.normalized()
	if cfg.Port != 8081 {
		t.Fatalf("port = %d, want 8081", cfg.Port)
	}
	if cfg.ScanInterval != 30*time.Second {
		t.Fatalf("scan interval = %v, want 30s", cfg.ScanInterval)
	}
	if cfg.ScanRetry != time.Minute {
		t.Fatalf("scan retry = %v, want 1m", cfg.ScanRetry)
	}
	if cfg.ScanBatch != 10 {
		t.Fatalf("scan batch = %d, want 10", cfg.ScanBatch)
	}
	if cfg.AnalyticsInterval != time.Hour {
		t.Fatalf("analytics interval = %v, want 1h", cfg.AnalyticsInterval)
	}
	if cfg.CleanupInterval != 24*time.Hour {
		t.Fatalf("cleanup interval = %v, want 24h", cfg.CleanupInterval)
	}
}
