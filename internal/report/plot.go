package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	terminalWidthBackup = 80
	sparkChars          = " .:-=+*#%@"
)

// TerminalWidth returns the current terminal width, falling back to 80
// when stdout is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline scaled to [0,1],
// which is the confidence score's native range.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	var b strings.Builder
	for _, v := range values {
		pos := math.Max(0, math.Min(1, v))
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Plot renders a text plot of the values with a [0,1] vertical axis
// and a threshold marker row.
func Plot(w io.Writer, title string, values []float64, threshold float64, width, height int) error {
	if len(values) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = TerminalWidth()
	}
	// Leave room for the axis labels.
	plotWidth := width - 7
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	series := Resample(values, plotWidth)

	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	threshRow := height - 1 - int(math.Round(math.Max(0, math.Min(1, threshold))*float64(height-1)))
	for row := 0; row < height; row++ {
		level := float64(height-1-row) / float64(height-1)
		label := "     "
		switch row {
		case 0:
			label = " 1.00"
		case height - 1:
			label = " 0.00"
		case threshRow:
			label = fmt.Sprintf("%5.2f", threshold)
		}
		var b strings.Builder
		for _, v := range series {
			filled := math.Max(0, math.Min(1, v)) >= level && v > 0
			switch {
			case filled:
				b.WriteByte('#')
			case row == threshRow:
				b.WriteByte('-')
			default:
				b.WriteByte(' ')
			}
		}
		if _, err := fmt.Fprintf(w, "%s |%s\n", label, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// Resample squeezes the values to the target width, keeping the
// maximum of each bucket so short spikes stay visible.
func Resample(values []float64, width int) []float64 {
	if len(values) <= width {
		return values
	}
	out := make([]float64, width)
	for i := 0; i < width; i++ {
		lo := i * len(values) / width
		hi := (i + 1) * len(values) / width
		if hi <= lo {
			hi = lo + 1
		}
		max := values[lo]
		for _, v := range values[lo:hi] {
			if v > max {
				max = v
			}
		}
		out[i] = max
	}
	return out
}
