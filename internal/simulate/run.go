package simulate

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/verte-zerg/loopwatch/internal/backlog"
	"github.com/verte-zerg/loopwatch/internal/detector"
	"github.com/verte-zerg/loopwatch/internal/model"
)

// Service intervals model how fast the software layer drains raw
// input. The storm scenario drains slower than events arrive, which is
// the backlog condition under diagnosis.
const (
	steadyService = 5 * time.Millisecond
	stormService  = 30 * time.Millisecond
)

// Result captures one headless simulation run.
type Result struct {
	Stats       model.SessionStats
	Alert       *model.AlertRecord
	Latency     []model.LatencyStats
	Confidences []float64
	FinalDepth  map[string]int
	Dominant    bool
}

type simClock struct {
	t time.Time
}

func (c *simClock) Now() time.Time { return c.t }

func (c *simClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// Run generates a scenario stream and feeds it through a fresh
// detector and backlog monitor under a simulated clock.
func Run(cfg model.SimulateConfig, tun detector.Tunables, logger *slog.Logger) (Result, error) {
	scenario, err := ParseScenario(cfg.Scenario)
	if err != nil {
		return Result{}, err
	}
	if cfg.Events <= 0 {
		return Result{}, fmt.Errorf("event count must be > 0, got %d", cfg.Events)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	gen := New(cfg.Seed)
	steps := gen.Steps(scenario, cfg.Events, time.Duration(cfg.StepMs)*time.Millisecond)

	clock := &simClock{t: time.Now()}
	alertCh := make(chan detector.Alert, 1)
	det := detector.NewWithClock(tun, func(a detector.Alert) { alertCh <- a }, clock.Now)
	mon := backlog.NewMonitor(logger)

	service := steadyService
	if scenario == ScenarioStorm {
		service = stormService
	}

	stats := model.SessionStats{
		StartedAt: clock.Now(),
		Scenario:  string(scenario),
	}
	confidences := make([]float64, 0, len(steps))
	// Per-category completion front: the consumer drains strictly FIFO
	// at the service rate.
	pending := map[backlog.Category][]time.Time{}
	serviceFront := map[backlog.Category]time.Time{}

	for _, step := range steps {
		clock.advance(step.Delay)
		now := clock.Now()

		// Drain whatever the consumer finished by now.
		for _, cat := range backlog.Categories {
			queue := pending[cat]
			for len(queue) > 0 {
				done := serviceStart(serviceFront[cat], queue[0]).Add(service)
				if done.After(now) {
					break
				}
				mon.Consumed(cat, done)
				serviceFront[cat] = done
				queue = queue[1:]
			}
			pending[cat] = queue
		}

		switch step.Kind {
		case detector.KindPress:
			det.Press(step.Button)
			stats.Presses++
			cat := backlog.CategoryPress
			if step.Button.IsDirectional() {
				cat = backlog.CategorySwipe
			}
			mon.Produced(cat, now)
			pending[cat] = append(pending[cat], now)
		case detector.KindFocus:
			det.Focus(step.ElementID)
			stats.FocusChanges++
		}
		stats.EventsTotal++

		score := det.Confidence()
		confidences = append(confidences, score)
		if score > stats.PeakConfidence {
			stats.PeakConfidence = score
		}
	}
	stats.EndedAt = clock.Now()
	stats.AlertFired = det.Fired()

	result := Result{
		Stats:       stats,
		Latency:     mon.Stats(),
		Confidences: confidences,
		Dominant:    mon.SwipeDominant(),
		FinalDepth: map[string]int{
			string(backlog.CategorySwipe): mon.Depth(backlog.CategorySwipe),
			string(backlog.CategoryPress): mon.Depth(backlog.CategoryPress),
			string(backlog.CategoryTotal): mon.Depth(backlog.CategoryTotal),
		},
	}
	if stats.AlertFired {
		select {
		case a := <-alertCh:
			logger.Warn("alert latch fired",
				"elapsed", a.At.Sub(stats.StartedAt),
				"payload", a.Fields())
			result.Alert = &model.AlertRecord{
				At:              a.At,
				Confidence:      a.Confidence,
				FrequencyScore:  a.FrequencyScore,
				DivergenceScore: a.DivergenceScore,
				CadenceScore:    a.CadenceScore,
				HistoryTail:     a.HistoryTail,
			}
		case <-time.After(2 * time.Second):
			return Result{}, fmt.Errorf("alert latch fired but no payload was delivered")
		}
	}
	return result, nil
}

// serviceStart returns when the consumer can start on a queued event:
// not before it arrived, not before the previous one finished.
func serviceStart(front, arrived time.Time) time.Time {
	if front.After(arrived) {
		return front
	}
	return arrived
}
