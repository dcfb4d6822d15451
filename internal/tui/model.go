// Package tui provides the Bubble Tea live monitor interface.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/loopwatch/internal/backlog"
	"github.com/verte-zerg/loopwatch/internal/detector"
	"github.com/verte-zerg/loopwatch/internal/model"
	"github.com/verte-zerg/loopwatch/internal/store"
)

const (
	gaugeWidth     = 40
	stormBurstSize = 30
	feedCap        = 200
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	calmStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#3AC569"))
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	feedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

type tickMsg time.Time

type alertMsg detector.Alert

// Model implements the Bubble Tea live monitor.
type Model struct {
	det    *detector.Detector
	mon    *backlog.Monitor
	store  *store.Store
	cfg    model.MonitorConfig
	logger *slog.Logger

	alertCh   chan detector.Alert
	lastAlert *detector.Alert

	width  int
	height int
	feed   viewport.Model
	lines  []string

	elements  []string
	focusIdx  int
	startedAt time.Time
	threshold float64
	peak      float64
}

// NewModel constructs the live monitor. The detector must have been
// created with alertCh as its sink. store may be nil to disable
// persistence.
func NewModel(det *detector.Detector, mon *backlog.Monitor, st *store.Store, cfg model.MonitorConfig, threshold float64, alertCh chan detector.Alert, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	elements := make([]string, 12)
	for i := range elements {
		elements[i] = fmt.Sprintf("cell-%d", i)
	}
	m := &Model{
		det:       det,
		mon:       mon,
		store:     st,
		cfg:       cfg,
		logger:    logger,
		alertCh:   alertCh,
		feed:      viewport.New(0, 0),
		elements:  elements,
		startedAt: time.Now(),
		threshold: threshold,
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.listenAlerts())
}

func (m *Model) tickCmd() tea.Cmd {
	interval := time.Duration(m.cfg.TickMs) * time.Millisecond
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) listenAlerts() tea.Cmd {
	return func() tea.Msg {
		a, ok := <-m.alertCh
		if !ok {
			return nil
		}
		return alertMsg(a)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeFeed()
		return m, nil
	case tickMsg:
		// The tick forces a re-render so decay is visible.
		m.trackPeak()
		return m, m.tickCmd()
	case alertMsg:
		alert := detector.Alert(msg)
		m.lastAlert = &alert
		m.pushLine(fmt.Sprintf("ALERT confidence=%.3f freq=%.2f div=%.2f cad=%.2f",
			alert.Confidence, alert.FrequencyScore, alert.DivergenceScore, alert.CadenceScore))
		return m, m.listenAlerts()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.persist()
		return m, tea.Quit
	case "up", "k":
		m.directional(detector.ButtonUp)
	case "down", "j":
		m.directional(detector.ButtonDown)
	case "left", "h":
		m.directional(detector.ButtonLeft)
	case "right", "l":
		m.directional(detector.ButtonRight)
	case "enter", " ":
		m.plainPress(detector.ButtonSelect)
	case "m":
		m.plainPress(detector.ButtonMenu)
	case "tab":
		m.moveFocus(1)
		m.det.Focus(m.elements[m.focusIdx])
		m.pushLine(fmt.Sprintf("focus → %s", m.elements[m.focusIdx]))
	case "s":
		m.stormBurst()
	case "r":
		m.det.Reset()
		m.mon.Reset()
		m.lastAlert = nil
		m.peak = 0
		m.pushLine("reset")
	}
	m.trackPeak()
	return m, nil
}

// directional feeds one directional press through the detector and the
// backlog instrumentation, then moves focus like a host UI would.
func (m *Model) directional(button detector.Button) {
	now := time.Now()
	m.mon.Produced(backlog.CategorySwipe, now)
	m.det.Press(button)
	m.moveFocus(1)
	m.det.Focus(m.elements[m.focusIdx])
	m.mon.Consumed(backlog.CategorySwipe, time.Now())
	m.pushLine(fmt.Sprintf("press(%s) → %s", button, m.elements[m.focusIdx]))
}

func (m *Model) plainPress(button detector.Button) {
	now := time.Now()
	m.mon.Produced(backlog.CategoryPress, now)
	m.det.Press(button)
	m.mon.Consumed(backlog.CategoryPress, time.Now())
	m.pushLine(fmt.Sprintf("press(%s)", button))
}

// stormBurst injects a synthetic runaway replay: machine-rate presses
// with frozen focus, only partially consumed so the backlog shows.
func (m *Model) stormBurst() {
	for i := 0; i < stormBurstSize; i++ {
		now := time.Now()
		m.mon.Produced(backlog.CategorySwipe, now)
		m.det.Press(detector.ButtonRight)
		if i%3 == 0 {
			m.mon.Consumed(backlog.CategorySwipe, time.Now())
		}
	}
	m.pushLine(fmt.Sprintf("storm burst: %d phantom presses", stormBurstSize))
}

func (m *Model) moveFocus(delta int) {
	m.focusIdx = (m.focusIdx + delta + len(m.elements)) % len(m.elements)
}

func (m *Model) trackPeak() {
	if score := m.det.Confidence(); score > m.peak {
		m.peak = score
	}
}

func (m *Model) pushLine(line string) {
	stamped := fmt.Sprintf("%8.3f  %s", time.Since(m.startedAt).Seconds(), line)
	m.lines = append(m.lines, stamped)
	limit := feedCap
	if m.cfg.TailLines > 0 {
		limit = m.cfg.TailLines
	}
	if len(m.lines) > limit {
		m.lines = m.lines[len(m.lines)-limit:]
	}
	m.renderFeed()
}

func (m *Model) resizeFeed() {
	headerHeight := 8
	footerHeight := 1
	h := m.height - headerHeight - footerHeight
	if h < 1 {
		h = 1
	}
	m.feed.Width = m.width
	m.feed.Height = h
	m.renderFeed()
}

func (m *Model) renderFeed() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	rendered := make([]string, len(m.lines))
	for i, line := range m.lines {
		rendered[i] = feedStyle.Render(truncate(line, width))
	}
	m.feed.SetContent(strings.Join(rendered, "\n"))
	m.feed.GotoBottom()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	state := m.det.State()

	status := calmStyle.Render("armed")
	if state.Fired {
		status = alertStyle.Render("ALERT FIRED")
	}
	header := titleStyle.Render("loopwatch") + "  " + status

	gauge := renderGauge(state.Confidence, m.threshold, gaugeWidth)
	gaugeStyled := calmStyle.Render(gauge)
	if state.Confidence >= m.threshold {
		gaugeStyled = alertStyle.Render(gauge)
	}
	confidence := fmt.Sprintf("%s [%s] %s",
		labelStyle.Render("confidence"),
		gaugeStyled,
		valueStyle.Render(fmt.Sprintf("%.3f", state.Confidence)))

	scores := labelStyle.Render("scores    ") + valueStyle.Render(
		fmt.Sprintf(" freq %.2f  div %.2f  cad %.2f", state.FrequencyScore, state.DivergenceScore, state.CadenceScore))
	events := labelStyle.Render("events    ") + valueStyle.Render(
		fmt.Sprintf(" %d total  %d presses  %d focus", state.Events, state.Presses, state.FocusChanges))

	backlogLine := labelStyle.Render("backlog   ") + valueStyle.Render(fmt.Sprintf(
		" swipe %d (max %d)  press %d (max %d)  total %d",
		m.mon.Depth(backlog.CategorySwipe), m.mon.MaxDepth(backlog.CategorySwipe),
		m.mon.Depth(backlog.CategoryPress), m.mon.MaxDepth(backlog.CategoryPress),
		m.mon.Depth(backlog.CategoryTotal)))
	if m.mon.SwipeDominant() {
		backlogLine += "  " + alertStyle.Render("swipe-dominant")
	}

	latency := labelStyle.Render("latency   ") + valueStyle.Render(
		fmt.Sprintf(" swipe %s  press %s",
			formatLatency(m.mon, backlog.CategorySwipe),
			formatLatency(m.mon, backlog.CategoryPress)))

	footer := footerStyle.Render("arrows/hjkl move · enter select · m menu · tab focus · s storm · r reset · q quit")

	sections := []string{
		truncate(header, m.width),
		"",
		truncate(confidence, m.width),
		truncate(scores, m.width),
		truncate(events, m.width),
		truncate(backlogLine, m.width),
		truncate(latency, m.width),
		"",
		m.feed.View(),
		truncate(footer, m.width),
	}
	return strings.Join(sections, "\n")
}

func formatLatency(mon *backlog.Monitor, cat backlog.Category) string {
	mean, ok := mon.MeanLatency(cat)
	if !ok {
		return "–"
	}
	max, _ := mon.MaxLatency(cat)
	return fmt.Sprintf("%.1f/%.1fms", mean, max)
}

// persist writes the session to the store, when enabled.
func (m *Model) persist() {
	if m.store == nil || !m.cfg.Persist {
		return
	}
	m.trackPeak()
	state := m.det.State()
	stats := model.SessionStats{
		StartedAt:      m.startedAt,
		EndedAt:        time.Now(),
		Scenario:       "live",
		EventsTotal:    state.Events,
		Presses:        state.Presses,
		FocusChanges:   state.FocusChanges,
		PeakConfidence: m.peak,
		AlertFired:     state.Fired,
	}
	var alerts []model.AlertRecord
	if m.lastAlert != nil {
		alerts = append(alerts, model.AlertRecord{
			At:              m.lastAlert.At,
			Confidence:      m.lastAlert.Confidence,
			FrequencyScore:  m.lastAlert.FrequencyScore,
			DivergenceScore: m.lastAlert.DivergenceScore,
			CadenceScore:    m.lastAlert.CadenceScore,
			HistoryTail:     m.lastAlert.HistoryTail,
		})
	}
	if _, err := m.store.InsertSession(context.Background(), stats, alerts, m.mon.Stats()); err != nil {
		m.logger.Error("failed to persist session", "err", err)
	}
}
