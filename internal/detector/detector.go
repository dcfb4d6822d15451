package detector

import (
	"math"
	"sync"
	"time"
)

// Alert is the diagnostics payload emitted once per session when the
// published confidence crosses the critical threshold.
type Alert struct {
	At              time.Time
	Confidence      float64
	FrequencyScore  float64
	DivergenceScore float64
	CadenceScore    float64
	HistoryTail     []string
}

// Fields returns the payload as a plain key/value map for logging.
func (a Alert) Fields() map[string]any {
	return map[string]any{
		"confidenceScore":  a.Confidence,
		"frequencyScore":   a.FrequencyScore,
		"divergenceScore":  a.DivergenceScore,
		"cadenceScore":     a.CadenceScore,
		"eventHistoryTail": a.HistoryTail,
	}
}

// AlertFunc receives the one-shot alert. It is invoked on its own
// goroutine; a slow sink never blocks event ingestion.
type AlertFunc func(Alert)

// Snapshot is a consistent read of the detector state.
type Snapshot struct {
	Confidence      float64
	FrequencyScore  float64
	DivergenceScore float64
	CadenceScore    float64
	Fired           bool
	Events          int
	Presses         int
	FocusChanges    int
}

// Detector maintains a bounded event history and combines three
// heuristics into a single decaying confidence score. All mutations are
// serialized on one mutex, so history insertion order matches call
// order regardless of which UI callback delivered the event.
type Detector struct {
	mu     sync.Mutex
	tun    Tunables
	now    func() time.Time
	origin time.Time
	hist   *history

	raw          float64
	score        float64
	fired        bool
	presses      int
	focusChanges int

	sink AlertFunc
}

// New returns a detector using the wall clock.
func New(tun Tunables, sink AlertFunc) *Detector {
	return NewWithClock(tun, sink, time.Now)
}

// NewWithClock returns a detector with an injected clock, used by the
// simulator and tests.
func NewWithClock(tun Tunables, sink AlertFunc, now func() time.Time) *Detector {
	return &Detector{
		tun:    tun,
		now:    now,
		origin: now(),
		hist:   newHistory(tun.HistoryCap),
		sink:   sink,
	}
}

// Press records a button press and recomputes the confidence score.
func (d *Detector) Press(button Button) {
	d.process(EventRecord{Kind: KindPress, Button: button})
}

// Focus records a focus change and recomputes the confidence score.
// An empty elementID means focus was lost.
func (d *Detector) Focus(elementID string) {
	d.process(EventRecord{Kind: KindFocus, ElementID: elementID})
}

func (d *Detector) process(rec EventRecord) {
	d.mu.Lock()
	rec.At = d.now()
	d.hist.append(rec)
	switch rec.Kind {
	case KindPress:
		d.presses++
	case KindFocus:
		d.focusChanges++
	}

	freq := frequencyScore(d.hist, d.tun)
	div := divergenceScore(d.hist, d.tun)
	cad := cadenceScore(d.hist, d.tun)
	d.raw = d.tun.FrequencyWeight*freq + d.tun.DivergenceWeight*div + d.tun.CadenceWeight*cad
	d.score = d.raw * d.decay(rec.At)

	var alert Alert
	fire := !d.fired && d.score >= d.tun.CriticalThreshold
	if fire {
		d.fired = true
		alert = Alert{
			At:              rec.At,
			Confidence:      d.score,
			FrequencyScore:  freq,
			DivergenceScore: div,
			CadenceScore:    cad,
			HistoryTail:     d.formatTail(),
		}
	}
	sink := d.sink
	d.mu.Unlock()

	if fire && sink != nil {
		go sink(alert)
	}
}

// Reset clears the history and re-arms the alert latch. Idempotent;
// afterwards the detector is indistinguishable from a fresh instance.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hist.clear()
	d.raw = 0
	d.score = 0
	d.fired = false
	d.presses = 0
	d.focusChanges = 0
	d.origin = d.now()
}

// Confidence returns the current published score. The time decay is
// applied against the clock at read time, so the score relaxes to zero
// within the decay horizon of input silence.
func (d *Detector) Confidence() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw * d.decay(d.now())
}

// Fired reports whether the alert latch has fired this session.
func (d *Detector) Fired() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired
}

// State returns a consistent snapshot of the score, sub-scores, and
// event counters.
func (d *Detector) State() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Confidence:      d.raw * d.decay(d.now()),
		FrequencyScore:  frequencyScore(d.hist, d.tun),
		DivergenceScore: divergenceScore(d.hist, d.tun),
		CadenceScore:    cadenceScore(d.hist, d.tun),
		Fired:           d.fired,
		Events:          d.hist.len(),
		Presses:         d.presses,
		FocusChanges:    d.focusChanges,
	}
}

// Tail returns the formatted recent history, newest last.
func (d *Detector) Tail() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.formatTail()
}

// decay relaxes the score toward zero as silence grows: an old backlog
// that stopped replaying is not a live loop.
func (d *Detector) decay(now time.Time) float64 {
	last, ok := d.hist.last()
	if !ok {
		return 0
	}
	since := now.Sub(last.At).Seconds()
	if since < 0 {
		since = 0
	}
	return 1 - math.Min(1, since/d.tun.DecayHorizon.Seconds())
}

func (d *Detector) formatTail() []string {
	recent := d.hist.tail(d.tun.TailLen)
	out := make([]string, 0, len(recent))
	for _, rec := range recent {
		out = append(out, rec.Format(d.origin))
	}
	return out
}
