package report

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/loopwatch/internal/model"
	"github.com/verte-zerg/loopwatch/internal/store"
)

// Report collects everything the stats command renders.
type Report struct {
	Sessions   []model.SessionAggregate
	Alerts     map[int64][]model.AlertRecord
	Latency    []model.LatencyAggregate
	AlertCount int
}

// Build loads sessions matching the config and their alert and latency
// data. Last limits to the most recent N sessions after filtering.
func Build(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	ids := make([]int64, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.SessionID)
	}
	alerts, err := st.ListAlertsForSessions(ctx, ids)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list alerts: %w", err)
	}
	latency, err := st.LatencyAggregates(ctx, ids)
	if err != nil {
		return Report{}, fmt.Errorf("failed to aggregate latency: %w", err)
	}
	count := 0
	for _, list := range alerts {
		count += len(list)
	}
	return Report{Sessions: sessions, Alerts: alerts, Latency: latency, AlertCount: count}, nil
}

// RenderSummary prints headline numbers for the report.
func RenderSummary(w io.Writer, r Report) error {
	if len(r.Sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	fired := 0
	var sumPeak, maxPeak float64
	for _, s := range r.Sessions {
		if s.AlertFired {
			fired++
		}
		sumPeak += s.PeakConfidence
		if s.PeakConfidence > maxPeak {
			maxPeak = s.PeakConfidence
		}
	}
	count := float64(len(r.Sessions))
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Sessions: %d\n", len(r.Sessions)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Alerts: %d (%d sessions fired)\n", r.AlertCount, fired); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg Peak Confidence: %.3f\n", sumPeak/count); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Max Peak Confidence: %.3f\n", maxPeak); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Peaks: %s\n", Sparkline(peaks(r.Sessions))); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderSessions prints the per-session table.
func RenderSessions(w io.Writer, r Report) error {
	if len(r.Sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Sessions"); err != nil {
		return err
	}
	headers := []string{"ID", "Ended", "Scenario", "Events", "Peak", "Alert"}
	rows := make([][]string, 0, len(r.Sessions))
	for _, s := range r.Sessions {
		alert := ""
		if s.AlertFired {
			alert = "FIRED"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.SessionID),
			s.EndedAt.Format("2006-01-02 15:04:05"),
			s.Scenario,
			fmt.Sprintf("%d", s.EventsTotal),
			fmt.Sprintf("%.3f", s.PeakConfidence),
			alert,
		})
	}
	rightAlign := map[int]bool{0: true, 3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderLatency prints the per-category backlog table.
func RenderLatency(w io.Writer, r Report) error {
	if len(r.Latency) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Backlog (Aggregated)"); err != nil {
		return err
	}
	headers := []string{"Category", "Samples", "Mean Latency (ms)", "Max Latency (ms)", "Max Depth"}
	rows := make([][]string, 0, len(r.Latency))
	for _, lat := range r.Latency {
		rows = append(rows, []string{
			lat.Category,
			fmt.Sprintf("%d", lat.SampleCount),
			fmt.Sprintf("%.1f", lat.MeanMs),
			fmt.Sprintf("%.1f", lat.MaxMs),
			fmt.Sprintf("%d", lat.MaxDepth),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderAlerts prints each fired alert with its history tail.
func RenderAlerts(w io.Writer, r Report) error {
	if r.AlertCount == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Alerts"); err != nil {
		return err
	}
	for _, s := range r.Sessions {
		for _, alert := range r.Alerts[s.SessionID] {
			if _, err := fmt.Fprintf(w, "session %d at %s: confidence %.3f (freq %.2f, div %.2f, cad %.2f)\n",
				s.SessionID,
				alert.At.Format("2006-01-02 15:04:05"),
				alert.Confidence,
				alert.FrequencyScore,
				alert.DivergenceScore,
				alert.CadenceScore,
			); err != nil {
				return err
			}
			for _, line := range alert.HistoryTail {
				if _, err := fmt.Fprintf(w, "  %s\n", line); err != nil {
					return err
				}
			}
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderPeakCurve prints the peak-confidence trend across sessions
// with a moving average applied.
func RenderPeakCurve(w io.Writer, r Report, window, width int, threshold float64) error {
	if len(r.Sessions) < 2 {
		return nil
	}
	values := MovingAverage(peaks(r.Sessions), window)
	return Plot(w, "Peak Confidence per Session", values, threshold, width, defaultPlotHeight)
}

func peaks(sessions []model.SessionAggregate) []float64 {
	out := make([]float64, len(sessions))
	for i, s := range sessions {
		out[i] = s.PeakConfidence
	}
	return out
}
