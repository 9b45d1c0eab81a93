// Package app boots the processor runtime: the session scan, analytics, and
// cleanup loops behind a gRPC health endpoint.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	cachebbolt "github.com/seddaluca/racing-analytics/internal/cache/bbolt"
	"github.com/seddaluca/racing-analytics/internal/services/processor/analytics"
	"github.com/seddaluca/racing-analytics/internal/services/processor/laps"
	"github.com/seddaluca/racing-analytics/internal/services/processor/retention"
	"github.com/seddaluca/racing-analytics/internal/services/processor/sessions"
	"github.com/seddaluca/racing-analytics/internal/storage/sqlite"
)

// RuntimeConfig controls processor startup and loop behavior.
type RuntimeConfig struct {
	Port      int
	DBPath    string
	CachePath string

	ScanInterval time.Duration
	ScanRetry    time.Duration
	ScanBatch    int

	AnalyticsInterval time.Duration
	AnalyticsRetry    time.Duration

	CleanupInterval time.Duration
	CleanupRetry    time.Duration
	Retention       time.Duration

	LapProximityMeters float64
	MinLapGap          time.Duration
	MinLapSamples      int
}

const (
	defaultPort      = 8081
	defaultDBPath    = "data/racing.db"
	defaultCachePath = "data/cache.db"

	defaultScanInterval = 30 * time.Second
	defaultScanRetry    = time.Minute
	defaultScanBatch    = 10

	defaultAnalyticsInterval = time.Hour
	defaultAnalyticsRetry    = 30 * time.Minute

	defaultCleanupInterval = 24 * time.Hour
	defaultCleanupRetry    = time.Hour
)

func (cfg RuntimeConfig) normalized() RuntimeConfig {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}
	if strings.TrimSpace(cfg.CachePath) == "" {
		cfg.CachePath = defaultCachePath
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = defaultScanInterval
	}
	if cfg.ScanRetry <= 0 {
		cfg.ScanRetry = defaultScanRetry
	}
	if cfg.ScanBatch <= 0 {
		cfg.ScanBatch = defaultScanBatch
	}
	if cfg.AnalyticsInterval <= 0 {
		cfg.AnalyticsInterval = defaultAnalyticsInterval
	}
	if cfg.AnalyticsRetry <= 0 {
		cfg.AnalyticsRetry = defaultAnalyticsRetry
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if cfg.CleanupRetry <= 0 {
		cfg.CleanupRetry = defaultCleanupRetry
	}
	return cfg
}

// Run starts processor dependencies and the background loops, serving until
// ctx is canceled.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.normalized()

	for _, path := range []string{cfg.DBPath, cfg.CachePath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create storage dir: %w", err)
			}
		}
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close sqlite store: %v", closeErr)
		}
	}()

	cacheStore, err := cachebbolt.Open(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() {
		if closeErr := cacheStore.Close(); closeErr != nil {
			log.Printf("close cache: %v", closeErr)
		}
	}()

	detector := laps.Config{
		ProximityMeters: cfg.LapProximityMeters,
		MinLapGap:       cfg.MinLapGap,
		MinSamples:      cfg.MinLapSamples,
	}
	processor := sessions.New(store, detector)
	aggregator := analytics.New(store, cacheStore)
	sweeper := retention.New(store, cacheStore, cfg.Retention)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on processor port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("processor.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("processor server listening at %v", listener.Addr())

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		runEvery(ctx, "session scan", cfg.ScanInterval, cfg.ScanRetry, func(ctx context.Context) error {
			processed, err := processor.ProcessBatch(ctx, cfg.ScanBatch)
			if processed > 0 {
				log.Printf("processed %d sessions", processed)
			}
			return err
		})
	}()
	go func() {
		defer wg.Done()
		runEvery(ctx, "analytics", cfg.AnalyticsInterval, cfg.AnalyticsRetry, aggregator.Run)
	}()
	go func() {
		defer wg.Done()
		runEvery(ctx, "cleanup", cfg.CleanupInterval, cfg.CleanupRetry, sweeper.Run)
	}()
	wg.Wait()
	return nil
}

// runEvery runs job immediately and then on every interval tick. A failed
// run is retried after the shorter retry delay instead.
func runEvery(ctx context.Context, name string, interval, retry time.Duration, job func(context.Context) error) {
	for {
		if ctx.Err() != nil {
			return
		}
		next := interval
		if err := job(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("%s: %v", name, err)
			next = retry
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
