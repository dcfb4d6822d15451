// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/loopwatch/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

const tailSeparator = "\n"

// Store wraps SQLite access for detection session data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			scenario TEXT NOT NULL,
			events_total INTEGER NOT NULL,
			presses INTEGER NOT NULL,
			focus_changes INTEGER NOT NULL,
			peak_confidence REAL NOT NULL,
			alert_fired INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS alerts (
			session_id INTEGER NOT NULL,
			fired_at TEXT NOT NULL,
			confidence REAL NOT NULL,
			frequency_score REAL NOT NULL,
			divergence_score REAL NOT NULL,
			cadence_score REAL NOT NULL,
			history_tail TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS latency_stats (
			session_id INTEGER NOT NULL,
			category TEXT NOT NULL,
			sample_count INTEGER NOT NULL,
			mean_ms REAL NOT NULL,
			max_ms REAL NOT NULL,
			max_depth INTEGER NOT NULL,
			PRIMARY KEY (session_id, category)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_session ON alerts(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a completed detection session with its alerts
// and per-category latency stats.
func (s *Store) InsertSession(ctx context.Context, stats model.SessionStats, alerts []model.AlertRecord, latency []model.LatencyStats) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, scenario, events_total, presses, focus_changes, peak_confidence, alert_fired)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.StartedAt.Format(time.RFC3339Nano),
		stats.EndedAt.Format(time.RFC3339Nano),
		stats.Scenario,
		stats.EventsTotal,
		stats.Presses,
		stats.FocusChanges,
		stats.PeakConfidence,
		boolToInt(stats.AlertFired),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, alert := range alerts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO alerts (session_id, fired_at, confidence, frequency_score, divergence_score, cadence_score, history_tail)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id,
			alert.At.Format(time.RFC3339Nano),
			alert.Confidence,
			alert.FrequencyScore,
			alert.DivergenceScore,
			alert.CadenceScore,
			strings.Join(alert.HistoryTail, tailSeparator),
		); err != nil {
			return 0, err
		}
	}

	for _, lat := range latency {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO latency_stats (session_id, category, sample_count, mean_ms, max_ms, max_depth)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, lat.Category, lat.SampleCount, lat.MeanMs, lat.MaxMs, lat.MaxDepth,
		); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListSessions returns session aggregates filtered by stats config,
// ordered oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Scenario != "" {
		clauses = append(clauses, "scenario = ?")
		args = append(args, cfg.Scenario)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, scenario, events_total, peak_confidence, alert_fired
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt string
		var fired int
		if err := rows.Scan(&agg.SessionID, &endedAt, &agg.Scenario, &agg.EventsTotal, &agg.PeakConfidence, &fired); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		agg.AlertFired = fired != 0
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListAlertsForSessions returns alert payloads for the given sessions,
// keyed by session id.
func (s *Store) ListAlertsForSessions(ctx context.Context, sessionIDs []int64) (map[int64][]model.AlertRecord, error) {
	if len(sessionIDs) == 0 {
		return map[int64][]model.AlertRecord{}, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT session_id, fired_at, confidence, frequency_score, divergence_score, cadence_score, history_tail
		FROM alerts
		WHERE session_id IN (%s)
		ORDER BY fired_at ASC`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[int64][]model.AlertRecord{}
	for rows.Next() {
		var sessionID int64
		var rec model.AlertRecord
		var firedAt, tail string
		if err := rows.Scan(&sessionID, &firedAt, &rec.Confidence, &rec.FrequencyScore, &rec.DivergenceScore, &rec.CadenceScore, &tail); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, firedAt)
		if err != nil {
			return nil, err
		}
		rec.At = parsed
		if tail != "" {
			rec.HistoryTail = strings.Split(tail, tailSeparator)
		}
		result[sessionID] = append(result[sessionID], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LatencyAggregates aggregates latency stats across sessions: total
// samples, sample-weighted mean, and maxima.
func (s *Store) LatencyAggregates(ctx context.Context, sessionIDs []int64) ([]model.LatencyAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT category,
			SUM(sample_count) AS sample_count,
			CASE WHEN SUM(sample_count) > 0
				THEN SUM(mean_ms * sample_count) / SUM(sample_count)
				ELSE 0 END AS mean_ms,
			MAX(max_ms) AS max_ms,
			MAX(max_depth) AS max_depth
		FROM latency_stats
		WHERE session_id IN (%s)
		GROUP BY category
		ORDER BY category`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.LatencyAggregate
	for rows.Next() {
		var agg model.LatencyAggregate
		if err := rows.Scan(&agg.Category, &agg.SampleCount, &agg.MeanMs, &agg.MaxMs, &agg.MaxDepth); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
