// Package app boots the telemetry capture runtime: the feed listener, the
// session manager, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seddaluca/racing-analytics/internal/broadcast"
	cachebbolt "github.com/seddaluca/racing-analytics/internal/cache/bbolt"
	"github.com/seddaluca/racing-analytics/internal/feed"
	"github.com/seddaluca/racing-analytics/internal/services/telemetry/api"
	"github.com/seddaluca/racing-analytics/internal/services/telemetry/session"
	"github.com/seddaluca/racing-analytics/internal/storage/sqlite"
)

// RuntimeConfig controls capture service startup.
type RuntimeConfig struct {
	Port      int
	FeedAddr  string
	DBPath    string
	CachePath string
	HubBuffer int
}

const (
	defaultPort            = 8080
	defaultFeedAddr        = ":33740"
	defaultDBPath          = "data/racing.db"
	defaultCachePath       = "data/cache.db"
	defaultHubBuffer       = 64
	httpShutdownTimeout    = 5 * time.Second
	managerShutdownTimeout = 5 * time.Second
)

// Run starts capture runtime dependencies and serves until ctx is canceled.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.FeedAddr) == "" {
		cfg.FeedAddr = defaultFeedAddr
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}
	if strings.TrimSpace(cfg.CachePath) == "" {
		cfg.CachePath = defaultCachePath
	}
	if cfg.HubBuffer <= 0 {
		cfg.HubBuffer = defaultHubBuffer
	}

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

	source, err := feed.ListenUDP(cfg.FeedAddr)
	if err != nil {
		return fmt.Errorf("listen telemetry feed: %w", err)
	}
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			log.Printf("close telemetry feed: %v", closeErr)
		}
	}()

	hub := broadcast.NewHub(cfg.HubBuffer)
	defer hub.Close()

	manager := session.NewManager(store, cacheStore, hub, source)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), managerShutdownTimeout)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown session manager: %v", err)
		}
	}()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.New(manager, store, cacheStore, hub).Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()
	log.Printf("telemetry server listening at %s, feed at %s", httpServer.Addr, source.Addr())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown http server: %v", err)
		}
		<-serveErr
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
