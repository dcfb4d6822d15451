package backlog

import (
	"sync"
	"time"
)

const (
	defaultPendingCap = 50
	defaultSampleCap  = 100
)

// Correlator pairs hardware event timestamps with their processed
// effects, strictly FIFO per category: the oldest backlog clears first,
// which is exactly the behavior being diagnosed. An unmatched producer
// timestamp that overflows the pending list is evidence of backlog,
// not an error, so the oldest entry is silently dropped.
type Correlator struct {
	mu         sync.Mutex
	pendingCap int
	sampleCap  int
	pending    map[Category][]time.Time
	samples    map[Category][]float64
}

// NewCorrelator returns a correlator with the default bounds.
func NewCorrelator() *Correlator {
	return &Correlator{
		pendingCap: defaultPendingCap,
		sampleCap:  defaultSampleCap,
		pending:    make(map[Category][]time.Time),
		samples:    make(map[Category][]float64),
	}
}

// RecordProducer appends a hardware event timestamp awaiting a match.
func (c *Correlator) RecordProducer(cat Category, t time.Time) {
	if cat == CategoryTotal {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.pending[cat]
	if len(queue) == c.pendingCap {
		queue = queue[1:]
	}
	c.pending[cat] = append(queue, t)
}

// RecordConsumer pairs a processed effect with the oldest outstanding
// producer timestamp and records the latency sample in milliseconds.
// With no outstanding timestamp the call is a no-op.
func (c *Correlator) RecordConsumer(cat Category, t time.Time) {
	if cat == CategoryTotal {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.pending[cat]
	if len(queue) == 0 {
		return
	}
	oldest := queue[0]
	c.pending[cat] = queue[1:]

	samples := c.samples[cat]
	if len(samples) == c.sampleCap {
		samples = samples[1:]
	}
	c.samples[cat] = append(samples, float64(t.Sub(oldest))/float64(time.Millisecond))
}

// Mean returns the mean latency in milliseconds over the retained
// samples. ok is false when no sample has been recorded.
func (c *Correlator) Mean(cat Category) (mean float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	samples := c.samples[cat]
	if len(samples) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples)), true
}

// Max returns the maximum latency in milliseconds over the retained
// samples. ok is false when no sample has been recorded.
func (c *Correlator) Max(cat Category) (max float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	samples := c.samples[cat]
	if len(samples) == 0 {
		return 0, false
	}
	max = samples[0]
	for _, s := range samples[1:] {
		if s > max {
			max = s
		}
	}
	return max, true
}

// SampleCount returns how many latency samples are retained.
func (c *Correlator) SampleCount(cat Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples[cat])
}

// PendingCount returns how many producer timestamps await a match.
func (c *Correlator) PendingCount(cat Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending[cat])
}

// Reset drops all pending timestamps and samples.
func (c *Correlator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = make(map[Category][]time.Time)
	c.samples = make(map[Category][]float64)
}
