package backlog

import (
	"bytes"
	"log/slog"
	"math/rand"
	"testing"
)

func TestDepthMatchesCounters(t *testing.T) {
	e := NewEstimator(nil)
	rnd := rand.New(rand.NewSource(42))
	produced, consumed := 0, 0
	for i := 0; i < 500; i++ {
		if rnd.Intn(3) != 0 {
			e.TrackProducer(CategorySwipe)
			produced++
		} else {
			e.TrackConsumer(CategorySwipe)
			consumed++
		}
		want := produced - consumed
		if want < 0 {
			want = 0
		}
		if got := e.Depth(CategorySwipe); got != want {
			t.Fatalf("step %d: depth %d, want %d", i, got, want)
		}
	}
	gotP, gotC := e.Counts(CategorySwipe)
	if gotP != produced || gotC != consumed {
		t.Fatalf("counters (%d,%d), want (%d,%d)", gotP, gotC, produced, consumed)
	}
}

func TestMaxDepthHighWater(t *testing.T) {
	e := NewEstimator(nil)
	for i := 0; i < 5; i++ {
		e.TrackProducer(CategoryPress)
	}
	for i := 0; i < 5; i++ {
		e.TrackConsumer(CategoryPress)
	}
	if got := e.Depth(CategoryPress); got != 0 {
		t.Fatalf("expected drained depth 0, got %d", got)
	}
	if got := e.MaxDepth(CategoryPress); got != 5 {
		t.Fatalf("expected high-water 5, got %d", got)
	}
	// High-water marks never decrease.
	e.TrackProducer(CategoryPress)
	if got := e.MaxDepth(CategoryPress); got != 5 {
		t.Fatalf("expected high-water to stay at 5, got %d", got)
	}
}

func TestTotalIsDerived(t *testing.T) {
	e := NewEstimator(nil)
	for i := 0; i < 3; i++ {
		e.TrackProducer(CategorySwipe)
	}
	for i := 0; i < 2; i++ {
		e.TrackProducer(CategoryPress)
	}
	e.TrackConsumer(CategoryPress)
	if got := e.Depth(CategoryTotal); got != 4 {
		t.Fatalf("expected total depth 4, got %d", got)
	}
	if got := e.MaxDepth(CategoryTotal); got != 5 {
		t.Fatalf("expected total high-water 5, got %d", got)
	}
}

func TestNegativeDepthClampedAndLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := NewEstimator(logger)
	e.TrackConsumer(CategorySwipe)
	if got := e.Depth(CategorySwipe); got != 0 {
		t.Fatalf("expected clamped depth 0, got %d", got)
	}
	if !bytes.Contains(buf.Bytes(), []byte("clamping depth")) {
		t.Fatalf("expected a diagnostic log line, got %q", buf.String())
	}
}

func TestSwipeDominant(t *testing.T) {
	e := NewEstimator(nil)
	if e.SwipeDominant() {
		t.Fatalf("expected no dominance with empty counters")
	}
	for i := 0; i < 5; i++ {
		e.TrackProducer(CategorySwipe)
	}
	for i := 0; i < 2; i++ {
		e.TrackProducer(CategoryPress)
	}
	if !e.SwipeDominant() {
		t.Fatalf("expected swipe dominance at 5 vs 2")
	}
	e.TrackProducer(CategoryPress)
	if e.SwipeDominant() {
		t.Fatalf("expected no dominance at 5 vs 3")
	}
}

func TestEstimatorReset(t *testing.T) {
	e := NewEstimator(nil)
	for i := 0; i < 4; i++ {
		e.TrackProducer(CategorySwipe)
	}
	e.Reset()
	if e.Depth(CategorySwipe) != 0 || e.MaxDepth(CategorySwipe) != 0 || e.MaxDepth(CategoryTotal) != 0 {
		t.Fatalf("expected zeroed estimator after reset")
	}
}

func TestUnknownCategoryIgnored(t *testing.T) {
	e := NewEstimator(nil)
	e.TrackProducer(Category("scroll"))
	if got := e.Depth(Category("scroll")); got != 0 {
		t.Fatalf("expected unknown category depth 0, got %d", got)
	}
	if got := e.Depth(CategoryTotal); got != 0 {
		t.Fatalf("expected total unaffected, got %d", got)
	}
}
