// Package backlog tracks the gap between hardware-originated input
// events and their software-processed effects: queue depth per event
// category and producer-to-consumer latency.
package backlog

import (
	"log/slog"
	"sync"
)

// Category identifies an input event stream.
type Category string

const (
	// CategorySwipe covers directional touch-surface input.
	CategorySwipe Category = "swipe"
	// CategoryPress covers discrete button input.
	CategoryPress Category = "press"
	// CategoryTotal is the derived sum of swipe and press.
	CategoryTotal Category = "total"
)

// Categories lists the real (non-derived) categories.
var Categories = []Category{CategorySwipe, CategoryPress}

type counters struct {
	produced int
	consumed int
	maxDepth int
}

// depth is always derived from the counters so that
// depth == produced - consumed holds after every call. A negative
// value is an upstream accounting bug; it is clamped, never trusted.
func (c *counters) depth() int {
	d := c.produced - c.consumed
	if d < 0 {
		return 0
	}
	return d
}

// Estimator tracks two independently counted event streams per
// category and estimates the backlog between them. All mutations
// serialize on one mutex.
type Estimator struct {
	mu            sync.Mutex
	logger        *slog.Logger
	swipe         counters
	press         counters
	totalMaxDepth int
}

// NewEstimator returns an estimator. A nil logger disables the
// negative-depth diagnostic.
func NewEstimator(logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Estimator{logger: logger}
}

// TrackProducer counts a hardware-originated event.
func (e *Estimator) TrackProducer(cat Category) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.countersFor(cat)
	if c == nil {
		return
	}
	c.produced++
	if d := c.depth(); d > c.maxDepth {
		c.maxDepth = d
	}
	if total := e.swipe.depth() + e.press.depth(); total > e.totalMaxDepth {
		e.totalMaxDepth = total
	}
}

// TrackConsumer counts a software-processed event.
func (e *Estimator) TrackConsumer(cat Category) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.countersFor(cat)
	if c == nil {
		return
	}
	c.consumed++
	if c.consumed > c.produced {
		e.logger.Warn("consumer count exceeds producer count; clamping depth",
			"category", string(cat),
			"produced", c.produced,
			"consumed", c.consumed)
	}
}

// Depth returns the current backlog for the category.
func (e *Estimator) Depth(cat Category) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cat == CategoryTotal {
		return e.swipe.depth() + e.press.depth()
	}
	c := e.countersFor(cat)
	if c == nil {
		return 0
	}
	return c.depth()
}

// MaxDepth returns the high-water backlog for the category.
func (e *Estimator) MaxDepth(cat Category) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cat == CategoryTotal {
		return e.totalMaxDepth
	}
	c := e.countersFor(cat)
	if c == nil {
		return 0
	}
	return c.maxDepth
}

// Counts returns the raw producer and consumer counters.
func (e *Estimator) Counts(cat Category) (produced, consumed int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cat == CategoryTotal {
		return e.swipe.produced + e.press.produced, e.swipe.consumed + e.press.consumed
	}
	c := e.countersFor(cat)
	if c == nil {
		return 0, 0
	}
	return c.produced, c.consumed
}

// SwipeDominant reports the distinguishing runaway-loop signature: the
// swipe backlog growing more than twice as deep as the press backlog.
func (e *Estimator) SwipeDominant() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	swipe := e.swipe.depth()
	return swipe > 0 && swipe > 2*e.press.depth()
}

// Reset zeroes all counters and high-water marks.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.swipe = counters{}
	e.press = counters{}
	e.totalMaxDepth = 0
}

func (e *Estimator) countersFor(cat Category) *counters {
	switch cat {
	case CategorySwipe:
		return &e.swipe
	case CategoryPress:
		return &e.press
	}
	return nil
}
