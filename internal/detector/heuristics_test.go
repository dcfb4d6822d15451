package detector

import (
	"math"
	"testing"
	"time"
)

func buildHistory(t *testing.T, records []EventRecord) *history {
	t.Helper()
	h := newHistory(defaultHistoryCap)
	for _, rec := range records {
		h.append(rec)
	}
	return h
}

func pressSeries(base time.Time, count int, step time.Duration, button Button) []EventRecord {
	records := make([]EventRecord, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, EventRecord{
			Kind:   KindPress,
			Button: button,
			At:     base.Add(time.Duration(i) * step),
		})
	}
	return records
}

func TestFrequencyFullRapidWindow(t *testing.T) {
	base := time.Unix(0, 0)
	h := buildHistory(t, pressSeries(base, 10, 10*time.Millisecond, ButtonRight))
	if got := frequencyScore(h, DefaultTunables()); got != 1.0 {
		t.Fatalf("expected frequency 1.0, got %v", got)
	}
}

func TestFrequencyInsufficientPresses(t *testing.T) {
	base := time.Unix(0, 0)
	h := buildHistory(t, pressSeries(base, 9, 10*time.Millisecond, ButtonRight))
	if got := frequencyScore(h, DefaultTunables()); got != 0 {
		t.Fatalf("expected frequency 0 with 9 presses, got %v", got)
	}
}

func TestFrequencyPartialRapid(t *testing.T) {
	base := time.Unix(0, 0)
	records := pressSeries(base, 5, 10*time.Millisecond, ButtonRight)
	slowStart := records[len(records)-1].At
	for i := 1; i <= 5; i++ {
		records = append(records, EventRecord{
			Kind:   KindPress,
			Button: ButtonRight,
			At:     slowStart.Add(time.Duration(i) * 200 * time.Millisecond),
		})
	}
	h := buildHistory(t, records)
	got := frequencyScore(h, DefaultTunables())
	want := 4.0 / 9.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected frequency %v, got %v", want, got)
	}
}

func TestFrequencyIgnoresFocusEvents(t *testing.T) {
	base := time.Unix(0, 0)
	records := pressSeries(base, 10, 10*time.Millisecond, ButtonRight)
	records = append(records, EventRecord{Kind: KindFocus, ElementID: "a", At: base.Add(time.Second)})
	h := buildHistory(t, records)
	if got := frequencyScore(h, DefaultTunables()); got != 1.0 {
		t.Fatalf("expected focus events to be excluded, got %v", got)
	}
}

func TestCadenceMetronome(t *testing.T) {
	base := time.Unix(0, 0)
	h := buildHistory(t, pressSeries(base, 15, 5*time.Millisecond, ButtonDown))
	if got := cadenceScore(h, DefaultTunables()); got != 1.0 {
		t.Fatalf("expected cadence 1.0 for identical deltas, got %v", got)
	}
}

func TestCadenceInsufficientPresses(t *testing.T) {
	base := time.Unix(0, 0)
	h := buildHistory(t, pressSeries(base, 14, 5*time.Millisecond, ButtonDown))
	if got := cadenceScore(h, DefaultTunables()); got != 0 {
		t.Fatalf("expected cadence 0 with 14 presses, got %v", got)
	}
}

func TestCadenceSpreadScoresNearZero(t *testing.T) {
	// Alternating 5ms/45ms deltas: population stddev 20ms, past the
	// 10ms spread bound.
	base := time.Unix(0, 0)
	records := make([]EventRecord, 0, 15)
	at := base
	for i := 0; i < 15; i++ {
		records = append(records, EventRecord{Kind: KindPress, Button: ButtonDown, At: at})
		if i%2 == 0 {
			at = at.Add(5 * time.Millisecond)
		} else {
			at = at.Add(45 * time.Millisecond)
		}
	}
	h := buildHistory(t, records)
	if got := cadenceScore(h, DefaultTunables()); got > 0.05 {
		t.Fatalf("expected cadence near 0 for spread deltas, got %v", got)
	}
}

// divergenceFixture builds a 20-event window with the given number of
// directional presses followed by focus events visiting the listed
// identifiers in order. Padding focus events repeat the last
// identifier so they add no transitions.
func divergenceFixture(base time.Time, directional int, focusIDs []string) []EventRecord {
	records := make([]EventRecord, 0, 20)
	at := base
	for i := 0; i < directional; i++ {
		records = append(records, EventRecord{Kind: KindPress, Button: ButtonRight, At: at})
		at = at.Add(50 * time.Millisecond)
	}
	last := ""
	for _, id := range focusIDs {
		records = append(records, EventRecord{Kind: KindFocus, ElementID: id, At: at})
		at = at.Add(50 * time.Millisecond)
		last = id
	}
	for len(records) < 20 {
		records = append(records, EventRecord{Kind: KindFocus, ElementID: last, At: at})
		at = at.Add(50 * time.Millisecond)
	}
	return records
}

func TestDivergenceBands(t *testing.T) {
	base := time.Unix(0, 0)
	tun := DefaultTunables()
	cases := []struct {
		name        string
		directional int
		focusIDs    []string
		want        float64
	}{
		{"no transitions", 12, []string{"a"}, 1.0},
		{"two transitions", 12, []string{"a", "b", "c"}, 0.8},
		{"four transitions", 12, []string{"a", "b", "c", "d", "e"}, 0.6},
		{"not enough presses", 10, []string{"a"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := buildHistory(t, divergenceFixture(base, tc.directional, tc.focusIDs))
			if got := divergenceScore(h, tun); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestDivergenceRatioBands(t *testing.T) {
	base := time.Unix(0, 0)
	tun := DefaultTunables()
	// Large windows so transition counts above 5 land in the ratio
	// bands: 6 transitions over 70 directional presses is ratio 0.086.
	tun.DivergenceWindow = 80
	h := newHistory(tun.HistoryCap)
	at := base
	for i := 0; i < 70; i++ {
		h.append(EventRecord{Kind: KindPress, Button: ButtonLeft, At: at})
		at = at.Add(time.Millisecond)
	}
	ids := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, id := range ids {
		h.append(EventRecord{Kind: KindFocus, ElementID: id, At: at})
		at = at.Add(time.Millisecond)
	}
	for h.len() < tun.DivergenceWindow {
		h.append(EventRecord{Kind: KindFocus, ElementID: "g", At: at})
		at = at.Add(time.Millisecond)
	}
	if got := divergenceScore(h, tun); got != tun.BandLowRatio {
		t.Fatalf("expected low-ratio band %v, got %v", tun.BandLowRatio, got)
	}
}

func TestDivergenceRequiresFullWindow(t *testing.T) {
	base := time.Unix(0, 0)
	h := buildHistory(t, pressSeries(base, 19, 5*time.Millisecond, ButtonRight))
	if got := divergenceScore(h, DefaultTunables()); got != 0 {
		t.Fatalf("expected 0 below the event window, got %v", got)
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := newHistory(3)
	base := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		h.append(EventRecord{Kind: KindPress, Button: ButtonUp, At: base.Add(time.Duration(i) * time.Second)})
	}
	if h.len() != 3 {
		t.Fatalf("expected capacity 3, got %d", h.len())
	}
	first := h.records[0]
	if got := first.At.Sub(base); got != 2*time.Second {
		t.Fatalf("expected oldest surviving record at +2s, got %v", got)
	}
}
