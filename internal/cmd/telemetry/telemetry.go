// Package telemetry parses capture command flags and launches the capture
// runtime.
package telemetry

import (
	"context"
	"flag"

	entrypoint "github.com/seddaluca/racing-analytics/internal/platform/cmd"
	telemetryapp "github.com/seddaluca/racing-analytics/internal/services/telemetry/app"
)

// Config holds capture command configuration.
type Config struct {
	Port      int    `env:"RACING_ANALYTICS_TELEMETRY_PORT" envDefault:"8080"`
	FeedAddr  string `env:"RACING_ANALYTICS_TELEMETRY_FEED_ADDR" envDefault:":33740"`
	DBPath    string `env:"RACING_ANALYTICS_DB_PATH" envDefault:"data/racing.db"`
	CachePath string `env:"RACING_ANALYTICS_CACHE_PATH" envDefault:"data/cache.db"`
	HubBuffer int    `env:"RACING_ANALYTICS_TELEMETRY_HUB_BUFFER" envDefault:"64"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The capture HTTP server port")
	fs.StringVar(&cfg.FeedAddr, "feed-addr", cfg.FeedAddr, "The telemetry feed UDP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The shared SQLite database path")
	fs.StringVar(&cfg.CachePath, "cache-path", cfg.CachePath, "The TTL cache database path")
	fs.IntVar(&cfg.HubBuffer, "hub-buffer", cfg.HubBuffer, "Frames buffered per websocket subscriber")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the capture runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTelemetry, func(context.Context) error {
		return telemetryapp.Run(ctx, telemetryapp.RuntimeConfig{
			Port:      cfg.Port,
			FeedAddr:  cfg.FeedAddr,
			DBPath:    cfg.DBPath,
			CachePath: cfg.CachePath,
			HubBuffer: cfg.HubBuffer,
		})
	})
}
