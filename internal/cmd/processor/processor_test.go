package processor

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("processor", flag.ContinueOnError)
	t.Setenv("RACING_ANALYTICS_PROCESSOR_PORT", "9091")
	t.Setenv("RACING_ANALYTICS_PROCESSOR_SCAN_INTERVAL", "10s")

	cfg, err := ParseConfig(fs, []string{"-scan-batch", "5", "-retention", "168h"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9091 {
		t.Fatalf("port = %d, want 9091", cfg.Port)
	}
	if cfg.ScanInterval != 10*time.Second {
		t.Fatalf("scan interval = %v, want 10s", cfg.ScanInterval)
	}
	if cfg.ScanBatch != 5 {
		t.Fatalf("scan batch = %d, want 5", cfg.ScanBatch)
	}
	if cfg.Retention != 168*time.Hour {
		t.Fatalf("retention = %v, want 168h", cfg.Retention)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("processor", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8081 {
		t.Fatalf("port = %d, want 8081", cfg.Port)
	}
	if cfg.Retention != 720*time.Hour {
		t.Fatalf("retention = %v, want 720h", cfg.Retention)
	}
	if cfg.LapProximityMeters != 50 {
		t.Fatalf("lap proximity = %v, want 50", cfg.LapProximityMeters)
	}
	if cfg.MinLapGap != 30*time.Second {
		t.Fatalf("min lap gap = %v, want 30s", cfg.MinLapGap)
	}
	if cfg.MinLapSamples != 100 {
		t.Fatalf("min lap samples = %d, want 100", cfg.MinLapSamples)
	}
}
