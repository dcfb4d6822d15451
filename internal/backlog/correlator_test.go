package backlog

import (
	"math"
	"testing"
	"time"
)

func TestFIFOPairingOrder(t *testing.T) {
	c := NewCorrelator()
	base := time.Unix(0, 0)
	t1 := base
	t2 := base.Add(10 * time.Millisecond)
	c.RecordProducer(CategoryPress, t1)
	c.RecordProducer(CategoryPress, t2)

	// First completion pairs with t1, second with t2, never the
	// reverse.
	c.RecordConsumer(CategoryPress, base.Add(50*time.Millisecond))
	c.RecordConsumer(CategoryPress, base.Add(70*time.Millisecond))

	max, ok := c.Max(CategoryPress)
	if !ok {
		t.Fatalf("expected samples")
	}
	if max != 60 {
		t.Fatalf("expected max latency 60ms (t2 pairing), got %v", max)
	}
	mean, _ := c.Mean(CategoryPress)
	if math.Abs(mean-55) > 1e-9 {
		t.Fatalf("expected mean latency 55ms, got %v", mean)
	}
}

func TestConsumerWithoutProducerIsNoOp(t *testing.T) {
	c := NewCorrelator()
	c.RecordConsumer(CategorySwipe, time.Unix(0, 0))
	if got := c.SampleCount(CategorySwipe); got != 0 {
		t.Fatalf("expected no samples, got %d", got)
	}
	if _, ok := c.Mean(CategorySwipe); ok {
		t.Fatalf("expected no mean without samples")
	}
	if _, ok := c.Max(CategorySwipe); ok {
		t.Fatalf("expected no max without samples")
	}
}

func TestPendingBounded(t *testing.T) {
	c := NewCorrelator()
	base := time.Unix(0, 0)
	for i := 0; i < 60; i++ {
		c.RecordProducer(CategorySwipe, base.Add(time.Duration(i)*time.Millisecond))
	}
	if got := c.PendingCount(CategorySwipe); got != defaultPendingCap {
		t.Fatalf("expected pending capped at %d, got %d", defaultPendingCap, got)
	}
	// The oldest 10 were dropped; the next match pairs with +10ms.
	c.RecordConsumer(CategorySwipe, base.Add(15*time.Millisecond))
	mean, ok := c.Mean(CategorySwipe)
	if !ok || mean != 5 {
		t.Fatalf("expected 5ms sample after drop, got %v (ok=%v)", mean, ok)
	}
}

func TestSamplesBounded(t *testing.T) {
	c := NewCorrelator()
	base := time.Unix(0, 0)
	for i := 0; i < 120; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		c.RecordProducer(CategoryPress, at)
		c.RecordConsumer(CategoryPress, at.Add(time.Duration(i)*time.Millisecond))
	}
	if got := c.SampleCount(CategoryPress); got != defaultSampleCap {
		t.Fatalf("expected samples capped at %d, got %d", defaultSampleCap, got)
	}
	// Only the newest 100 samples (20ms..119ms) survive.
	mean, _ := c.Mean(CategoryPress)
	if math.Abs(mean-69.5) > 1e-9 {
		t.Fatalf("expected mean 69.5ms over retained window, got %v", mean)
	}
}

func TestCategoriesIndependent(t *testing.T) {
	c := NewCorrelator()
	base := time.Unix(0, 0)
	c.RecordProducer(CategorySwipe, base)
	c.RecordConsumer(CategoryPress, base.Add(time.Millisecond))
	if got := c.SampleCount(CategoryPress); got != 0 {
		t.Fatalf("expected press completion not to match swipe producer, got %d samples", got)
	}
	if got := c.PendingCount(CategorySwipe); got != 1 {
		t.Fatalf("expected swipe producer still pending, got %d", got)
	}
}

func TestMonitorStats(t *testing.T) {
	m := NewMonitor(nil)
	base := time.Unix(0, 0)
	m.Produced(CategorySwipe, base)
	m.Produced(CategorySwipe, base.Add(time.Millisecond))
	m.Consumed(CategorySwipe, base.Add(20*time.Millisecond))

	if got := m.Depth(CategorySwipe); got != 1 {
		t.Fatalf("expected depth 1, got %d", got)
	}
	stats := m.Stats()
	if len(stats) != 2 {
		t.Fatalf("expected stats for 2 categories, got %d", len(stats))
	}
	found := false
	for _, s := range stats {
		if s.Category != string(CategorySwipe) {
			continue
		}
		found = true
		if s.SampleCount != 1 || s.MeanMs != 20 || s.MaxMs != 20 || s.MaxDepth != 2 {
			t.Fatalf("unexpected swipe stats %+v", s)
		}
	}
	if !found {
		t.Fatalf("missing swipe stats")
	}
}
