package backlog

import (
	"log/slog"
	"time"

	"github.com/verte-zerg/loopwatch/internal/model"
)

// Monitor bundles the depth estimator and the latency correlator so
// the instrumentation layer makes one call per raw event.
type Monitor struct {
	est  *Estimator
	corr *Correlator
}

// NewMonitor returns a monitor with fresh components.
func NewMonitor(logger *slog.Logger) *Monitor {
	return &Monitor{est: NewEstimator(logger), corr: NewCorrelator()}
}

// Produced records a hardware-originated event at time t.
func (m *Monitor) Produced(cat Category, t time.Time) {
	m.est.TrackProducer(cat)
	m.corr.RecordProducer(cat, t)
}

// Consumed records a software-processed effect at time t.
func (m *Monitor) Consumed(cat Category, t time.Time) {
	m.est.TrackConsumer(cat)
	m.corr.RecordConsumer(cat, t)
}

// Depth returns the current backlog for the category.
func (m *Monitor) Depth(cat Category) int { return m.est.Depth(cat) }

// MaxDepth returns the high-water backlog for the category.
func (m *Monitor) MaxDepth(cat Category) int { return m.est.MaxDepth(cat) }

// SwipeDominant reports an asymmetric swipe-heavy backlog.
func (m *Monitor) SwipeDominant() bool { return m.est.SwipeDominant() }

// MeanLatency returns the mean latency for the category in ms.
func (m *Monitor) MeanLatency(cat Category) (float64, bool) { return m.corr.Mean(cat) }

// MaxLatency returns the max latency for the category in ms.
func (m *Monitor) MaxLatency(cat Category) (float64, bool) { return m.corr.Max(cat) }

// Reset zeroes both components.
func (m *Monitor) Reset() {
	m.est.Reset()
	m.corr.Reset()
}

// Stats summarizes the monitor per category for persistence.
func (m *Monitor) Stats() []model.LatencyStats {
	out := make([]model.LatencyStats, 0, len(Categories))
	for _, cat := range Categories {
		stats := model.LatencyStats{
			Category:    string(cat),
			SampleCount: m.corr.SampleCount(cat),
			MaxDepth:    m.est.MaxDepth(cat),
		}
		if mean, ok := m.corr.Mean(cat); ok {
			stats.MeanMs = mean
		}
		if max, ok := m.corr.Max(cat); ok {
			stats.MaxMs = max
		}
		out = append(out, stats)
	}
	return out
}
