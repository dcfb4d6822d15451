// Package main provides the CLI entrypoint for loopwatch.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/loopwatch/internal/backlog"
	"github.com/verte-zerg/loopwatch/internal/config"
	"github.com/verte-zerg/loopwatch/internal/detector"
	"github.com/verte-zerg/loopwatch/internal/model"
	"github.com/verte-zerg/loopwatch/internal/report"
	"github.com/verte-zerg/loopwatch/internal/simulate"
	"github.com/verte-zerg/loopwatch/internal/store"
	"github.com/verte-zerg/loopwatch/internal/tui"
)

const (
	defaultTickMs      = 100
	defaultTail        = 200
	defaultThreshold   = 0.70
	defaultScenario    = "storm"
	defaultEvents      = 300
	defaultCurveWindow = 10
)

var (
	rootVerbose bool

	monitorTickMs    int
	monitorTail      int
	monitorPersist   bool
	monitorThreshold float64

	simScenario  string
	simEvents    int
	simSeed      uint64
	simStepMs    int
	simPersist   bool
	simThreshold float64

	statsScenario    string
	statsSince       string
	statsLast        int
	statsCurveWindow int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "loopwatch",
		Short:         "Runaway input loop detector",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runMonitorCmd,
	}

	rootCmd.PersistentFlags().BoolVar(&rootVerbose, "verbose", false, "enable debug logging")

	rootCmd.Flags().IntVar(&monitorTickMs, "tick-ms", defaultTickMs, "UI refresh interval in milliseconds")
	rootCmd.Flags().IntVar(&monitorTail, "tail", defaultTail, "event feed lines to keep")
	rootCmd.Flags().BoolVar(&monitorPersist, "persist", true, "persist the session on quit")
	rootCmd.Flags().Float64Var(&monitorThreshold, "threshold", defaultThreshold, "alert threshold (0-1)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if rootVerbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}

func runMonitorCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "tick-ms", &monitorTickMs, fileCfg.Monitor.TickMs)
	applyIntConfig(cmd, "tail", &monitorTail, fileCfg.Monitor.Tail)
	applyBoolConfig(cmd, "persist", &monitorPersist, fileCfg.Monitor.Persist)

	tun := detector.DefaultTunables()
	fileCfg.Detector.Apply(&tun)
	if cmd.Flags().Changed("threshold") {
		tun.CriticalThreshold = monitorThreshold
	}
	if err := validateTunables(tun); err != nil {
		return err
	}

	cfg := model.MonitorConfig{
		TickMs:    monitorTickMs,
		TailLines: monitorTail,
		Persist:   monitorPersist,
	}
	if cfg.TickMs <= 0 {
		return fmt.Errorf("--tick-ms must be > 0")
	}
	if cfg.TailLines <= 0 {
		return fmt.Errorf("--tail must be > 0")
	}

	logger := newLogger()

	var st *store.Store
	if cfg.Persist {
		st, err = store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logger.Error("failed to close db", "err", cerr)
			}
		}()
	}

	alertCh := make(chan detector.Alert, 4)
	det := detector.New(tun, func(a detector.Alert) { alertCh <- a })
	mon := backlog.NewMonitor(logger)

	model := tui.NewModel(det, mon, st, cfg, tun.CriticalThreshold, alertCh, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a headless input scenario",
		Args:  cobra.NoArgs,
		RunE:  runSimulateCmd,
	}
	cmd.Flags().StringVar(&simScenario, "scenario", defaultScenario, "scenario: steady, stuck, or storm")
	cmd.Flags().IntVar(&simEvents, "events", defaultEvents, "number of input events to generate")
	cmd.Flags().Uint64Var(&simSeed, "seed", 0, "random seed (0: derive from current time)")
	cmd.Flags().IntVar(&simStepMs, "step-ms", 0, "base inter-event gap in ms (0: scenario default)")
	cmd.Flags().BoolVar(&simPersist, "persist", false, "persist the run to the session db")
	cmd.Flags().Float64Var(&simThreshold, "threshold", defaultThreshold, "alert threshold (0-1)")
	return cmd
}

func runSimulateCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "scenario", &simScenario, fileCfg.Simulate.Scenario)
	applyIntConfig(cmd, "events", &simEvents, fileCfg.Simulate.Events)
	applyIntConfig(cmd, "step-ms", &simStepMs, fileCfg.Simulate.StepMs)

	tun := detector.DefaultTunables()
	fileCfg.Detector.Apply(&tun)
	if cmd.Flags().Changed("threshold") {
		tun.CriticalThreshold = simThreshold
	}
	if err := validateTunables(tun); err != nil {
		return err
	}

	seed := simSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	cfg := model.SimulateConfig{
		Scenario: simScenario,
		Events:   simEvents,
		Seed:     seed,
		StepMs:   simStepMs,
	}

	logger := newLogger()
	res, err := simulate.Run(cfg, tun, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := renderSimResult(out, cfg, res, tun.CriticalThreshold); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if simPersist {
		st, err := store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logger.Error("failed to close db", "err", cerr)
			}
		}()
		var alerts []model.AlertRecord
		if res.Alert != nil {
			alerts = append(alerts, *res.Alert)
		}
		id, err := st.InsertSession(context.Background(), res.Stats, alerts, res.Latency)
		if err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}
		logger.Info("session persisted", "id", id)
	}
	return nil
}

func renderSimResult(w io.Writer, cfg model.SimulateConfig, res simulate.Result, threshold float64) error {
	lines := []string{
		fmt.Sprintf("scenario:  %s (seed %d)", cfg.Scenario, cfg.Seed),
		fmt.Sprintf("events:    %d total, %d presses, %d focus changes",
			res.Stats.EventsTotal, res.Stats.Presses, res.Stats.FocusChanges),
		fmt.Sprintf("peak:      %.3f (threshold %.2f)", res.Stats.PeakConfidence, threshold),
	}
	if res.Alert != nil {
		elapsed := res.Alert.At.Sub(res.Stats.StartedAt).Seconds()
		lines = append(lines,
			fmt.Sprintf("alert:     FIRED at +%.3fs, confidence %.3f", elapsed, res.Alert.Confidence),
			fmt.Sprintf("           freq %.2f  div %.2f  cad %.2f",
				res.Alert.FrequencyScore, res.Alert.DivergenceScore, res.Alert.CadenceScore))
	} else {
		lines = append(lines, "alert:     none")
	}
	depthLine := "backlog:  "
	for _, cat := range backlog.Categories {
		depthLine += fmt.Sprintf(" %s %d", cat, res.FinalDepth[string(cat)])
	}
	if res.Dominant {
		depthLine += "  (swipe-dominant)"
	}
	lines = append(lines, depthLine)
	for _, ls := range res.Latency {
		if ls.SampleCount == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("latency:   %s mean %.1fms max %.1fms depth %d (n=%d)",
			ls.Category, ls.MeanMs, ls.MaxMs, ls.MaxDepth, ls.SampleCount))
	}
	if len(res.Confidences) > 0 {
		lines = append(lines, "curve:     "+report.Sparkline(report.Resample(res.Confidences, 60)))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recorded session stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsScenario, "scenario", "", "scenario filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window for the peak curve")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	tun := detector.DefaultTunables()
	fileCfg.Detector.Apply(&tun)

	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}

	cfg := model.StatsConfig{
		Scenario:    statsScenario,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}

	logger := newLogger()
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error("failed to close db", "err", cerr)
		}
	}()

	r, err := report.Build(context.Background(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := report.RenderSummary(out, r); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := report.RenderSessions(out, r); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := report.RenderLatency(out, r); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := report.RenderAlerts(out, r); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	width := report.TerminalWidth()
	if err := report.RenderPeakCurve(out, r, cfg.CurveWindow, width, tun.CriticalThreshold); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	tun := detector.DefaultTunables()
	return fmt.Sprintf(`# loopwatch configuration
# Uncomment a value to enable it. CLI flags override config values.

[detector]
# critical-threshold = %.2f  # Alert threshold (0-1)
# frequency-weight = %.1f    # Weight of the rapid-press heuristic
# divergence-weight = %.1f   # Weight of the stuck-focus heuristic
# cadence-weight = %.1f      # Weight of the timing-regularity heuristic
# rapid-press-ms = %d        # Presses faster than this count as rapid
# decay-horizon-ms = %d    # Score decays to zero this long after the last event
# band-none = %.1f           # Divergence score when focus never moves
# band-few = %.1f            # Divergence score for 1-2 focus transitions
# band-some = %.1f           # Divergence score for 3-5 focus transitions
# band-low-ratio = %.1f      # Divergence score when transition ratio < 0.10
# band-mid-ratio = %.1f      # Divergence score when transition ratio < 0.20

[monitor]
# tick-ms = %d              # UI refresh interval in milliseconds
# tail = %d                 # Event feed lines to keep
# persist = true             # Persist sessions on quit

[simulate]
# scenario = %q          # steady, stuck, or storm
# events = %d              # Events per run
# step-ms = 0                # Base inter-event gap (0: scenario default)
`,
		tun.CriticalThreshold,
		tun.FrequencyWeight,
		tun.DivergenceWeight,
		tun.CadenceWeight,
		int(tun.RapidPress/time.Millisecond),
		int(tun.DecayHorizon/time.Millisecond),
		tun.BandNoTransitions,
		tun.BandFewTransitions,
		tun.BandSomeTransitions,
		tun.BandLowRatio,
		tun.BandMidRatio,
		defaultTickMs,
		defaultTail,
		defaultScenario,
		defaultEvents,
	)
}

func validateTunables(tun detector.Tunables) error {
	if tun.CriticalThreshold <= 0 || tun.CriticalThreshold > 1 {
		return fmt.Errorf("--threshold must be in (0, 1]")
	}
	weights := tun.FrequencyWeight + tun.DivergenceWeight + tun.CadenceWeight
	if weights <= 0 {
		return fmt.Errorf("heuristic weights must sum to a positive value")
	}
	if tun.RapidPress <= 0 {
		return fmt.Errorf("rapid-press-ms must be > 0")
	}
	if tun.DecayHorizon <= 0 {
		return fmt.Errorf("decay-horizon-ms must be > 0")
	}
	return nil
}
