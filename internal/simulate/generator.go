// Package simulate builds synthetic navigation event streams and
// drives the detector with them under a simulated clock.
package simulate

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/verte-zerg/loopwatch/internal/detector"
)

// Scenario selects the shape of the generated input stream.
type Scenario string

const (
	// ScenarioSteady is ordinary human navigation: unhurried presses,
	// focus moving with every press.
	ScenarioSteady Scenario = "steady"
	// ScenarioStuck is a user hammering against a focus trap: regular
	// presses, focus barely moving. Suspicious but subcritical.
	ScenarioStuck Scenario = "stuck"
	// ScenarioStorm is a runaway replay burst: machine-rate repeated
	// presses with frozen focus.
	ScenarioStorm Scenario = "storm"
)

// Scenarios lists the known scenario names.
var Scenarios = []Scenario{ScenarioSteady, ScenarioStuck, ScenarioStorm}

// ParseScenario validates a scenario name.
func ParseScenario(name string) (Scenario, error) {
	for _, s := range Scenarios {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown scenario %q (known: steady, stuck, storm)", name)
}

// Step is one generated input event with its delay since the previous
// step.
type Step struct {
	Kind      detector.Kind
	Button    detector.Button
	ElementID string
	Delay     time.Duration
}

// Generator produces randomized navigation event streams.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator for the given seed. The seed is masked to 63
// bits before the signed conversion so a high bit never wraps the
// source seed negative.
func New(seed uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(int64(seed & (1<<63 - 1))))}
}

var directions = []detector.Button{
	detector.ButtonUp,
	detector.ButtonDown,
	detector.ButtonLeft,
	detector.ButtonRight,
}

// Steps generates count events for the scenario. step scales the base
// cadence; zero selects the scenario default.
func (g *Generator) Steps(scenario Scenario, count int, step time.Duration) []Step {
	switch scenario {
	case ScenarioStuck:
		return g.stuckSteps(count, orDefault(step, 40*time.Millisecond))
	case ScenarioStorm:
		return g.stormSteps(count, orDefault(step, 5*time.Millisecond))
	default:
		return g.steadySteps(count, orDefault(step, 250*time.Millisecond))
	}
}

func (g *Generator) steadySteps(count int, base time.Duration) []Step {
	steps := make([]Step, 0, count)
	cell := g.rnd.Intn(12)
	for len(steps) < count {
		dir := directions[g.rnd.Intn(len(directions))]
		steps = append(steps, Step{
			Kind:   detector.KindPress,
			Button: dir,
			Delay:  base + time.Duration(g.rnd.Intn(200))*time.Millisecond,
		})
		if len(steps) == count {
			break
		}
		cell = nextCell(cell, dir)
		steps = append(steps, Step{
			Kind:      detector.KindFocus,
			ElementID: fmt.Sprintf("cell-%d", cell),
			Delay:     30*time.Millisecond + time.Duration(g.rnd.Intn(50))*time.Millisecond,
		})
	}
	return steps
}

func (g *Generator) stuckSteps(count int, base time.Duration) []Step {
	steps := make([]Step, 0, count)
	dir := directions[g.rnd.Intn(len(directions))]
	trap := []string{"cell-3", "cell-4"}
	for i := 0; len(steps) < count; i++ {
		jitter := time.Duration(g.rnd.Intn(7)-3) * time.Millisecond
		steps = append(steps, Step{
			Kind:   detector.KindPress,
			Button: dir,
			Delay:  base + jitter,
		})
		// Focus bounces inside the trap every few presses.
		if i%6 == 5 && len(steps) < count {
			steps = append(steps, Step{
				Kind:      detector.KindFocus,
				ElementID: trap[(i/6)%2],
				Delay:     10 * time.Millisecond,
			})
		}
	}
	return steps
}

func (g *Generator) stormSteps(count int, base time.Duration) []Step {
	steps := make([]Step, 0, count)
	dir := directions[g.rnd.Intn(len(directions))]
	for i := 0; len(steps) < count; i++ {
		steps = append(steps, Step{
			Kind:   detector.KindPress,
			Button: dir,
			Delay:  base + time.Duration(g.rnd.Intn(4))*time.Millisecond,
		})
		// The replayed backlog never moves focus; the rare focus event
		// reports the same stuck element.
		if i%10 == 9 && len(steps) < count {
			steps = append(steps, Step{
				Kind:      detector.KindFocus,
				ElementID: "cell-0",
				Delay:     time.Millisecond,
			})
		}
	}
	return steps
}

func nextCell(cell int, dir detector.Button) int {
	// 4-wide grid of 12 cells, clamped at the edges.
	row, col := cell/4, cell%4
	switch dir {
	case detector.ButtonUp:
		if row > 0 {
			row--
		}
	case detector.ButtonDown:
		if row < 2 {
			row++
		}
	case detector.ButtonLeft:
		if col > 0 {
			col--
		}
	case detector.ButtonRight:
		if col < 3 {
			col++
		}
	}
	return row*4 + col
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
