package detector

import (
	"math"
	"time"
)

const defaultHistoryCap = 100

// Tunables holds the empirically tuned heuristic parameters. The
// divergence bands in particular encode observed behavior, not derived
// constants, so they are kept adjustable.
type Tunables struct {
	HistoryCap int

	// Frequency ("machine-gun"): fraction of recent inter-press deltas
	// faster than a human could plausibly produce.
	FrequencyWindow int
	RapidPress      time.Duration

	// Divergence ("black hole"): sustained directional input that never
	// moves focus.
	DivergenceWindow     int
	DivergenceMinPresses int
	BandNoTransitions    float64
	BandFewTransitions   float64
	BandSomeTransitions  float64
	BandLowRatio         float64
	BandMidRatio         float64
	RatioLow             float64
	RatioMid             float64

	// Cadence ("metronome"): inter-press timing too regular for a human.
	CadenceWindow int
	CadenceFloor  time.Duration
	CadenceSpread time.Duration

	FrequencyWeight  float64
	DivergenceWeight float64
	CadenceWeight    float64

	CriticalThreshold float64
	DecayHorizon      time.Duration
	TailLen           int
}

// DefaultTunables returns the tuned defaults.
func DefaultTunables() Tunables {
	return Tunables{
		HistoryCap:           defaultHistoryCap,
		FrequencyWindow:      10,
		RapidPress:           25 * time.Millisecond,
		DivergenceWindow:     20,
		DivergenceMinPresses: 10,
		BandNoTransitions:    1.0,
		BandFewTransitions:   0.8,
		BandSomeTransitions:  0.6,
		BandLowRatio:         0.4,
		BandMidRatio:         0.2,
		RatioLow:             0.10,
		RatioMid:             0.20,
		CadenceWindow:        15,
		CadenceFloor:         time.Millisecond,
		CadenceSpread:        10 * time.Millisecond,
		FrequencyWeight:      0.5,
		DivergenceWeight:     0.3,
		CadenceWeight:        0.2,
		CriticalThreshold:    0.70,
		DecayHorizon:         2 * time.Second,
		TailLen:              20,
	}
}

// frequencyScore measures how many recent inter-press intervals are
// below the rapid-press threshold. Requires a full window of presses;
// anything less scores 0.
func frequencyScore(h *history, tun Tunables) float64 {
	presses := h.pressTail(tun.FrequencyWindow)
	if len(presses) < tun.FrequencyWindow {
		return 0
	}
	deltas := interDeltas(presses)
	if len(deltas) == 0 {
		return 0
	}
	rapid := 0
	for _, d := range deltas {
		if d < tun.RapidPress {
			rapid++
		}
	}
	return float64(rapid) / float64(len(deltas))
}

// divergenceScore measures sustained directional input with little or
// no focus movement. It inspects the most recent DivergenceWindow
// events of any kind and counts focus-identifier transitions, i.e.
// changes from the previously seen identifier, not raw focus events.
func divergenceScore(h *history, tun Tunables) float64 {
	if h.len() < tun.DivergenceWindow {
		return 0
	}
	recent := h.tail(tun.DivergenceWindow)

	directional := 0
	transitions := 0
	prevFocus := ""
	seenFocus := false
	for _, rec := range recent {
		switch rec.Kind {
		case KindPress:
			if rec.Button.IsDirectional() {
				directional++
			}
		case KindFocus:
			if seenFocus && rec.ElementID != prevFocus {
				transitions++
			}
			prevFocus = rec.ElementID
			seenFocus = true
		}
	}
	if directional <= tun.DivergenceMinPresses {
		return 0
	}

	switch {
	case transitions == 0:
		return tun.BandNoTransitions
	case transitions <= 2:
		return tun.BandFewTransitions
	case transitions <= 5:
		return tun.BandSomeTransitions
	}
	ratio := float64(transitions) / float64(directional)
	switch {
	case ratio < tun.RatioLow:
		return tun.BandLowRatio
	case ratio < tun.RatioMid:
		return tun.BandMidRatio
	}
	return 0
}

// cadenceScore measures the regularity of inter-press timing via the
// population standard deviation of the recent deltas.
func cadenceScore(h *history, tun Tunables) float64 {
	presses := h.pressTail(tun.CadenceWindow)
	if len(presses) < tun.CadenceWindow {
		return 0
	}
	deltas := interDeltas(presses)
	if len(deltas) == 0 {
		return 0
	}
	stddev := popStddev(deltas)
	if stddev < tun.CadenceFloor {
		return 1.0
	}
	ratio := float64(stddev) / float64(tun.CadenceSpread)
	return 1 - math.Min(1, ratio)
}

func interDeltas(records []EventRecord) []time.Duration {
	if len(records) < 2 {
		return nil
	}
	deltas := make([]time.Duration, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		deltas = append(deltas, records[i].At.Sub(records[i-1].At))
	}
	return deltas
}

func popStddev(deltas []time.Duration) time.Duration {
	n := float64(len(deltas))
	var sum float64
	for _, d := range deltas {
		sum += d.Seconds()
	}
	mean := sum / n
	var sq float64
	for _, d := range deltas {
		diff := d.Seconds() - mean
		sq += diff * diff
	}
	return time.Duration(math.Sqrt(sq/n) * float64(time.Second))
}
