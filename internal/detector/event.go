// Package detector implements the runaway-input-loop confidence scorer.
package detector

import (
	"fmt"
	"time"
)

// Kind distinguishes the two event classes the detector consumes.
type Kind int

const (
	// KindPress is a remote/keyboard button press.
	KindPress Kind = iota
	// KindFocus is a focus change reported by the host UI.
	KindFocus
)

// Button identifies which press was observed.
type Button string

const (
	ButtonUp     Button = "up"
	ButtonDown   Button = "down"
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonSelect Button = "select"
	ButtonMenu   Button = "menu"
)

// IsDirectional reports whether the button moves focus.
func (b Button) IsDirectional() bool {
	switch b {
	case ButtonUp, ButtonDown, ButtonLeft, ButtonRight:
		return true
	}
	return false
}

// EventRecord is a single timestamped input event. Records are immutable
// once appended to the history.
type EventRecord struct {
	Kind      Kind
	Button    Button
	ElementID string
	At        time.Time
}

// Format renders the record for the alert history tail, with the
// timestamp as seconds since the detector's origin.
func (r EventRecord) Format(origin time.Time) string {
	id := r.ElementID
	if id == "" {
		id = "nil"
	}
	switch r.Kind {
	case KindPress:
		return fmt.Sprintf("%.3f: press(%s) on %s", r.At.Sub(origin).Seconds(), r.Button, id)
	default:
		return fmt.Sprintf("%.3f: focus on %s", r.At.Sub(origin).Seconds(), id)
	}
}
