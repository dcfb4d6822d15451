package report

import (
	"bytes"
	"strings"
	"testing"
)

func TestMovingAverage(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := MovingAverage(values, 2)
	want := []float64{1, 1.5, 2.5, 3.5, 4.5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMovingAverageWindowOne(t *testing.T) {
	values := []float64{1, 2, 3}
	got := MovingAverage(values, 1)
	for i := range values {
		if got[i] != values[i] {
			t.Fatalf("expected identity for window 1, got %v", got)
		}
	}
	// The input must not be aliased.
	got[0] = 99
	if values[0] == 99 {
		t.Fatalf("moving average aliased its input")
	}
}

func TestSparklineRange(t *testing.T) {
	line := Sparkline([]float64{0, 0.5, 1})
	if len(line) != 3 {
		t.Fatalf("expected 3 chars, got %q", line)
	}
	if line[0] != ' ' || line[2] != '@' {
		t.Fatalf("expected full-scale endpoints, got %q", line)
	}
}

func TestSparklineClampsOutOfRange(t *testing.T) {
	line := Sparkline([]float64{-1, 2})
	if line != " @" {
		t.Fatalf("expected clamped output, got %q", line)
	}
}

func TestPlotShowsThresholdRow(t *testing.T) {
	var buf bytes.Buffer
	values := []float64{0.1, 0.5, 0.9, 0.9, 0.2}
	if err := Plot(&buf, "Test", values, 0.70, 40, 8); err != nil {
		t.Fatalf("plot: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Test\n") {
		t.Fatalf("expected title, got %q", out)
	}
	if !strings.Contains(out, " 0.70 |") {
		t.Fatalf("expected threshold label, got %q", out)
	}
	if !strings.Contains(out, "#") {
		t.Fatalf("expected filled cells, got %q", out)
	}
}

func TestResampleKeepsSpikes(t *testing.T) {
	values := make([]float64, 100)
	values[57] = 1.0
	out := Resample(values, 10)
	if len(out) != 10 {
		t.Fatalf("expected 10 buckets, got %d", len(out))
	}
	found := false
	for _, v := range out {
		if v == 1.0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the spike to survive resampling")
	}
}

func TestFormatTableAlignment(t *testing.T) {
	headers := []string{"Name", "Count"}
	rows := [][]string{{"swipe", "3"}, {"press", "120"}}
	lines := formatTable(headers, rows, map[int]bool{1: true})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[1] != "swipe     3" {
		t.Fatalf("unexpected right alignment: %q", lines[1])
	}
	if lines[2] != "press   120" {
		t.Fatalf("unexpected row: %q", lines[2])
	}
}
