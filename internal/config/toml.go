// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/loopwatch/internal/detector"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Detector DetectorConfig `toml:"detector"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Simulate SimulateConfig `toml:"simulate"`
}

// DetectorConfig maps detector tunables. The divergence bands are
// deliberately configurable; they encode tuned heuristics.
type DetectorConfig struct {
	CriticalThreshold *float64 `toml:"critical-threshold"`
	FrequencyWeight   *float64 `toml:"frequency-weight"`
	DivergenceWeight  *float64 `toml:"divergence-weight"`
	CadenceWeight     *float64 `toml:"cadence-weight"`
	RapidPressMs      *int     `toml:"rapid-press-ms"`
	DecayHorizonMs    *int     `toml:"decay-horizon-ms"`
	BandNone          *float64 `toml:"band-none"`
	BandFew           *float64 `toml:"band-few"`
	BandSome          *float64 `toml:"band-some"`
	BandLowRatio      *float64 `toml:"band-low-ratio"`
	BandMidRatio      *float64 `toml:"band-mid-ratio"`
}

// MonitorConfig maps live monitor settings.
type MonitorConfig struct {
	TickMs  *int  `toml:"tick-ms"`
	Tail    *int  `toml:"tail"`
	Persist *bool `toml:"persist"`
}

// SimulateConfig maps simulation defaults.
type SimulateConfig struct {
	Scenario *string `toml:"scenario"`
	Events   *int    `toml:"events"`
	StepMs   *int    `toml:"step-ms"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Apply overlays the configured detector values onto the tunables.
func (c DetectorConfig) Apply(tun *detector.Tunables) {
	if c.CriticalThreshold != nil {
		tun.CriticalThreshold = *c.CriticalThreshold
	}
	if c.FrequencyWeight != nil {
		tun.FrequencyWeight = *c.FrequencyWeight
	}
	if c.DivergenceWeight != nil {
		tun.DivergenceWeight = *c.DivergenceWeight
	}
	if c.CadenceWeight != nil {
		tun.CadenceWeight = *c.CadenceWeight
	}
	if c.RapidPressMs != nil {
		tun.RapidPress = time.Duration(*c.RapidPressMs) * time.Millisecond
	}
	if c.DecayHorizonMs != nil {
		tun.DecayHorizon = time.Duration(*c.DecayHorizonMs) * time.Millisecond
	}
	if c.BandNone != nil {
		tun.BandNoTransitions = *c.BandNone
	}
	if c.BandFew != nil {
		tun.BandFewTransitions = *c.BandFew
	}
	if c.BandSome != nil {
		tun.BandSomeTransitions = *c.BandSome
	}
	if c.BandLowRatio != nil {
		tun.BandLowRatio = *c.BandLowRatio
	}
	if c.BandMidRatio != nil {
		tun.BandMidRatio = *c.BandMidRatio
	}
}
