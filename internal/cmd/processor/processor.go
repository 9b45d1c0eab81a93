// Package processor parses processor command flags and launches the
// processing runtime.
package processor

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/seddaluca/racing-analytics/internal/platform/cmd"
	processorapp "github.com/seddaluca/racing-analytics/internal/services/processor/app"
)

// Config holds processor command configuration.
type Config struct {
	Port      int    `env:"RACING_ANALYTICS_PROCESSOR_PORT" envDefault:"8081"`
	DBPath    string `env:"RACING_ANALYTICS_DB_PATH" envDefault:"data/racing.db"`
	CachePath string `env:"RACING_ANALYTICS_CACHE_PATH" envDefault:"data/cache.db"`

	ScanInterval time.Duration `env:"RACING_ANALYTICS_PROCESSOR_SCAN_INTERVAL" envDefault:"30s"`
	ScanRetry    time.Duration `env:"RACING_ANALYTICS_PROCESSOR_SCAN_RETRY" envDefault:"1m"`
	ScanBatch    int           `env:"RACING_ANALYTICS_PROCESSOR_SCAN_BATCH" envDefault:"10"`

	AnalyticsInterval time.Duration `env:"RACING_ANALYTICS_PROCESSOR_ANALYTICS_INTERVAL" envDefault:"1h"`
	AnalyticsRetry    time.Duration `env:"RACING_ANALYTICS_PROCESSOR_ANALYTICS_RETRY" envDefault:"30m"`

	CleanupInterval time.Duration `env:"RACING_ANALYTICS_PROCESSOR_CLEANUP_INTERVAL" envDefault:"24h"`
	CleanupRetry    time.Duration `env:"RACING_ANALYTICS_PROCESSOR_CLEANUP_RETRY" envDefault:"1h"`
	Retention       time.Duration `env:"RACING_ANALYTICS_PROCESSOR_RETENTION" envDefault:"720h"`

	LapProximityMeters float64       `env:"RACING_ANALYTICS_LAP_PROXIMITY_METERS" envDefault:"50"`
	MinLapGap          time.Duration `env:"RACING_ANALYTICS_MIN_LAP_GAP" envDefault:"30s"`
	MinLapSamples      int           `env:"RACING_ANALYTICS_MIN_LAP_SAMPLES" envDefault:"100"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The processor health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The shared SQLite database path")
	fs.StringVar(&cfg.CachePath, "cache-path", cfg.CachePath, "The TTL cache database path")
	fs.DurationVar(&cfg.ScanInterval, "scan-interval", cfg.ScanInterval, "Session scan interval")
	fs.DurationVar(&cfg.ScanRetry, "scan-retry", cfg.ScanRetry, "Session scan retry delay after a failure")
	fs.IntVar(&cfg.ScanBatch, "scan-batch", cfg.ScanBatch, "Maximum sessions processed per scan")
	fs.DurationVar(&cfg.AnalyticsInterval, "analytics-interval", cfg.AnalyticsInterval, "Analytics refresh interval")
	fs.DurationVar(&cfg.AnalyticsRetry, "analytics-retry", cfg.AnalyticsRetry, "Analytics retry delay after a failure")
	fs.DurationVar(&cfg.CleanupInterval, "cleanup-interval", cfg.CleanupInterval, "Cleanup interval")
	fs.DurationVar(&cfg.CleanupRetry, "cleanup-retry", cfg.CleanupRetry, "Cleanup retry delay after a failure")
	fs.DurationVar(&cfg.Retention, "retention", cfg.Retention, "Telemetry retention window")
	fs.Float64Var(&cfg.LapProximityMeters, "lap-proximity", cfg.LapProximityMeters, "Start-line proximity in meters")
	fs.DurationVar(&cfg.MinLapGap, "min-lap-gap", cfg.MinLapGap, "Minimum time between lap crossings")
	fs.IntVar(&cfg.MinLapSamples, "min-lap-samples", cfg.MinLapSamples, "Minimum trace samples for lap detection")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the processor runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceProcessor, func(context.Context) error {
		return processorapp.Run(ctx, processorapp.RuntimeConfig{
			Port:               cfg.Port,
			DBPath:             cfg.DBPath,
			CachePath:          cfg.CachePath,
			ScanInterval:       cfg.ScanInterval,
			ScanRetry:          cfg.ScanRetry,
			ScanBatch:          cfg.ScanBatch,
			AnalyticsInterval:  cfg.AnalyticsInterval,
			AnalyticsRetry:     cfg.AnalyticsRetry,
			CleanupInterval:    cfg.CleanupInterval,
			CleanupRetry:       cfg.CleanupRetry,
			Retention:          cfg.Retention,
			LapProximityMeters: cfg.LapProximityMeters,
			MinLapGap:          cfg.MinLapGap,
			MinLapSamples:      cfg.MinLapSamples,
		})
	})
}
