package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/loopwatch/internal/detector"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Detector.CriticalThreshold != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[detector]
critical-threshold = 0.80
rapid-press-ms = 30
band-few = 0.75

[monitor]
tick-ms = 50
persist = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	tun := detector.DefaultTunables()
	cfg.Detector.Apply(&tun)
	if tun.CriticalThreshold != 0.80 {
		t.Fatalf("expected threshold override, got %v", tun.CriticalThreshold)
	}
	if tun.RapidPress != 30*time.Millisecond {
		t.Fatalf("expected rapid-press override, got %v", tun.RapidPress)
	}
	if tun.BandFewTransitions != 0.75 {
		t.Fatalf("expected band override, got %v", tun.BandFewTransitions)
	}
	// Untouched values keep their defaults.
	if tun.FrequencyWeight != 0.5 {
		t.Fatalf("expected default frequency weight, got %v", tun.FrequencyWeight)
	}
	if cfg.Monitor.TickMs == nil || *cfg.Monitor.TickMs != 50 {
		t.Fatalf("expected monitor tick override, got %+v", cfg.Monitor)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
