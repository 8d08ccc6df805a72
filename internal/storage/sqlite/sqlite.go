// Package sqlite provides a file-backed storage.RunStore for local runs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

// timeLayout is the TEXT encoding of timestamps; it sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS detection_runs (
    run_id            TEXT PRIMARY KEY,
    created_at        TEXT NOT NULL,
    config_digest     TEXT NOT NULL,
    tp                INTEGER NOT NULL,
    fp                INTEGER NOT NULL,
    fn                INTEGER NOT NULL,
    precision_score   REAL NOT NULL,
    recall_score      REAL NOT NULL,
    f1_score          REAL NOT NULL,
    skipped_windows   TEXT NOT NULL DEFAULT '[]',
    window_summaries  TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_detection_runs_created_at ON detection_runs(created_at);

CREATE TABLE IF NOT EXISTS merged_events (
    run_id       TEXT NOT NULL REFERENCES detection_runs(run_id) ON DELETE CASCADE,
    seq          INTEGER NOT NULL,
    event_id     TEXT NOT NULL,
    window_id    TEXT NOT NULL,
    start_time   TEXT NOT NULL,
    end_time     TEXT NOT NULL,
    avg_score    REAL NOT NULL,
    peak_score   REAL NOT NULL,
    duration_ns  INTEGER NOT NULL,
    confidence   REAL NOT NULL,
    strength     TEXT NOT NULL,
    event_type   TEXT NOT NULL,
    validation   TEXT NOT NULL,
    peak_count   INTEGER NOT NULL,
    first_index  INTEGER NOT NULL,
    last_index   INTEGER NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS false_negatives (
    run_id          TEXT NOT NULL REFERENCES detection_runs(run_id) ON DELETE CASCADE,
    seq             INTEGER NOT NULL,
    window_id       TEXT NOT NULL,
    expected_start  TEXT NOT NULL,
    expected_end    TEXT NOT NULL,
    search_start    TEXT NOT NULL,
    search_end      TEXT NOT NULL,
    reason          TEXT NOT NULL,
    PRIMARY KEY (run_id, seq)
);
`,
	},
}

// RunStore implements storage.RunStore on a SQLite file.
type RunStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Open opens (or creates) a SQLite database at path and applies pending
// schema migrations.
func Open(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One writer; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &RunStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *RunStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *RunStore) Close() error { return s.db.Close() }

// Save persists a run with its events and false negatives atomically.
// Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Save(ctx context.Context, run *domain.DetectionRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	summaries, err := json.Marshal(run.Windows)
	if err != nil {
		return fmt.Errorf("encode window summaries: %w", err)
	}
	skipped := run.SkippedWindows
	if skipped == nil {
		skipped = []string{}
	}
	skippedJSON, err := json.Marshal(skipped)
	if err != nil {
		return fmt.Errorf("encode skipped windows: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM detection_runs WHERE run_id = ?`, run.RunID).Scan(&count); err != nil {
		return fmt.Errorf("check run exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO detection_runs(run_id, created_at, config_digest, tp, fp, fn,
            precision_score, recall_score, f1_score, skipped_windows, window_summaries)
        VALUES(?,?,?,?,?,?,?,?,?,?,?)
    `,
		run.RunID, formatTime(run.CreatedAt), run.ConfigDigest,
		run.Summary.TP, run.Summary.FP, run.Summary.FN,
		run.Summary.Precision, run.Summary.Recall, run.Summary.F1,
		string(skippedJSON), string(summaries),
	)
	if err != nil {
		return fmt.Errorf("insert detection run: %w", err)
	}

	for i, e := range run.Events {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO merged_events(run_id, seq, event_id, window_id, start_time, end_time, avg_score, peak_score,
                duration_ns, confidence, strength, event_type, validation, peak_count, first_index, last_index)
            VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
        `,
			run.RunID, i, e.EventID, e.WindowID, formatTime(e.Start), formatTime(e.End), e.AvgScore, e.PeakScore,
			int64(e.Duration), e.Confidence, string(e.Strength), string(e.Type), string(e.Validation),
			e.PeakCount, e.FirstIndex, e.LastIndex,
		)
		if err != nil {
			return fmt.Errorf("insert merged event %s: %w", e.EventID, err)
		}
	}

	for i, fn := range run.FalseNegatives {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO false_negatives(run_id, seq, window_id, expected_start, expected_end, search_start, search_end, reason)
            VALUES(?,?,?,?,?,?,?,?)
        `,
			run.RunID, i, fn.WindowID, formatTime(fn.ExpectedStart), formatTime(fn.ExpectedEnd),
			formatTime(fn.SearchStart), formatTime(fn.SearchEnd), string(fn.Reason),
		)
		if err != nil {
			return fmt.Errorf("insert false negative %s: %w", fn.WindowID, err)
		}
	}

	return tx.Commit()
}

// Get retrieves a run by ID. Returns ErrNotFound if not exists.
func (s *RunStore) Get(ctx context.Context, runID string) (*domain.DetectionRun, error) {
	var run domain.DetectionRun
	var created, skipped, summaries string

	err := s.db.QueryRowContext(ctx, `
        SELECT run_id, created_at, config_digest, tp, fp, fn,
            precision_score, recall_score, f1_score, skipped_windows, window_summaries
        FROM detection_runs WHERE run_id = ?
    `, runID).Scan(
		&run.RunID, &created, &run.ConfigDigest,
		&run.Summary.TP, &run.Summary.FP, &run.Summary.FN,
		&run.Summary.Precision, &run.Summary.Recall, &run.Summary.F1,
		&skipped, &summaries,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get detection run: %w", err)
	}

	if run.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(skipped), &run.SkippedWindows); err != nil {
		return nil, fmt.Errorf("decode skipped windows: %w", err)
	}
	if err := json.Unmarshal([]byte(summaries), &run.Windows); err != nil {
		return nil, fmt.Errorf("decode window summaries: %w", err)
	}

	if run.Events, err = s.getEvents(ctx, runID); err != nil {
		return nil, err
	}
	if run.FalseNegatives, err = s.getFalseNegatives(ctx, runID); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRunIDs returns stored run IDs ordered by creation time ASC.
func (s *RunStore) ListRunIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM detection_runs ORDER BY created_at ASC, run_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list run ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *RunStore) getEvents(ctx context.Context, runID string) ([]*domain.MergedEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT event_id, window_id, start_time, end_time, avg_score, peak_score, duration_ns,
            confidence, strength, event_type, validation, peak_count, first_index, last_index
        FROM merged_events WHERE run_id = ? ORDER BY seq ASC
    `, runID)
	if err != nil {
		return nil, fmt.Errorf("query merged events: %w", err)
	}
	defer rows.Close()

	var events []*domain.MergedEvent
	for rows.Next() {
		var e domain.MergedEvent
		var start, end, strength, eventType, validation string
		var durationNs int64

		if err := rows.Scan(
			&e.EventID, &e.WindowID, &start, &end, &e.AvgScore, &e.PeakScore, &durationNs,
			&e.Confidence, &strength, &eventType, &validation, &e.PeakCount, &e.FirstIndex, &e.LastIndex,
		); err != nil {
			return nil, fmt.Errorf("scan merged event row: %w", err)
		}
		if e.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if e.End, err = parseTime(end); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(durationNs)
		e.Strength = domain.Strength(strength)
		e.Type = domain.EventType(eventType)
		e.Validation = domain.Validation(validation)
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (s *RunStore) getFalseNegatives(ctx context.Context, runID string) ([]domain.FalseNegative, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT window_id, expected_start, expected_end, search_start, search_end, reason
        FROM false_negatives WHERE run_id = ? ORDER BY seq ASC
    `, runID)
	if err != nil {
		return nil, fmt.Errorf("query false negatives: %w", err)
	}
	defer rows.Close()

	var fns []domain.FalseNegative
	for rows.Next() {
		var fn domain.FalseNegative
		var times [4]string
		var reason string

		if err := rows.Scan(&fn.WindowID, &times[0], &times[1], &times[2], &times[3], &reason); err != nil {
			return nil, fmt.Errorf("scan false negative row: %w", err)
		}
		targets := []*time.Time{&fn.ExpectedStart, &fn.ExpectedEnd, &fn.SearchStart, &fn.SearchEnd}
		for i, ts := range times {
			if *targets[i], err = parseTime(ts); err != nil {
				return nil, err
			}
		}
		fn.Reason = domain.FalseNegativeReason(reason)
		fns = append(fns, fn)
	}
	return fns, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}
