// Package model defines shared data structures.
package model

import "time"

// MonitorConfig defines live monitor settings.
type MonitorConfig struct {
	TickMs    int
	TailLines int
	Persist   bool
}

// SimulateConfig defines headless simulation settings.
type SimulateConfig struct {
	Scenario string
	Events   int
	Seed     uint64
	StepMs   int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Scenario    string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SessionStats captures a completed detection session.
type SessionStats struct {
	StartedAt      time.Time
	EndedAt        time.Time
	Scenario       string
	EventsTotal    int
	Presses        int
	FocusChanges   int
	PeakConfidence float64
	AlertFired     bool
}

// AlertRecord stores the diagnostics payload emitted by the alert latch.
type AlertRecord struct {
	At              time.Time
	Confidence      float64
	FrequencyScore  float64
	DivergenceScore float64
	CadenceScore    float64
	HistoryTail     []string
}

// LatencyStats stores per-category backlog aggregates for a session.
type LatencyStats struct {
	Category    string
	SampleCount int
	MeanMs      float64
	MaxMs       float64
	MaxDepth    int
}

// SessionAggregate summarizes a session for reporting.
type SessionAggregate struct {
	SessionID      int64
	EndedAt        time.Time
	Scenario       string
	EventsTotal    int
	PeakConfidence float64
	AlertFired     bool
}

// LatencyAggregate aggregates latency stats across sessions.
type LatencyAggregate struct {
	Category    string
	SampleCount int
	MeanMs      float64
	MaxMs       float64
	MaxDepth    int
}
