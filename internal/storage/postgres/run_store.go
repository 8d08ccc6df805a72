package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
// A run and its events and false negatives are written in one transaction.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO detection_runs (
			run_id, created_at, config_digest, tp, fp, fn,
			precision_score, recall_score, f1_score, skipped_windows, window_summaries
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		run.RunID,
		run.CreatedAt,
		run.ConfigDigest,
		run.Summary.TP,
		run.Summary.FP,
		run.Summary.FN,
		run.Summary.Precision,
		run.Summary.Recall,
		run.Summary.F1,
		skipped,
		string(summaries),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert detection run: %w", err)
	}

	for i, e := range run.Events {
		_, err := tx.Exec(ctx, `
			INSERT INTO merged_events (
				run_id, seq, event_id, window_id, start_time, end_time, avg_score, peak_score,
				duration_ns, confidence, strength, event_type, validation, peak_count, first_index, last_index
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`,
			run.RunID, i, e.EventID, e.WindowID, e.Start, e.End, e.AvgScore, e.PeakScore,
			int64(e.Duration), e.Confidence, string(e.Strength), string(e.Type), string(e.Validation),
			e.PeakCount, e.FirstIndex, e.LastIndex,
		)
		if err != nil {
			return fmt.Errorf("insert merged event %s: %w", e.EventID, err)
		}
	}

	for i, fn := range run.FalseNegatives {
		_, err := tx.Exec(ctx, `
			INSERT INTO false_negatives (
				run_id, seq, window_id, expected_start, expected_end, search_start, search_end, reason
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			run.RunID, i, fn.WindowID, fn.ExpectedStart, fn.ExpectedEnd, fn.SearchStart, fn.SearchEnd, string(fn.Reason),
		)
		if err != nil {
			return fmt.Errorf("insert false negative %s: %w", fn.WindowID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves a run by ID. Returns ErrNotFound if not exists.
func (s *RunStore) Get(ctx context.Context, runID string) (*domain.DetectionRun, error) {
	var run domain.DetectionRun
	var summaries []byte

	err := s.pool.QueryRow(ctx, `
		SELECT run_id, created_at, config_digest, tp, fp, fn,
			precision_score, recall_score, f1_score, skipped_windows, window_summaries
		FROM detection_runs
		WHERE run_id = $1
	`, runID).Scan(
		&run.RunID,
		&run.CreatedAt,
		&run.ConfigDigest,
		&run.Summary.TP,
		&run.Summary.FP,
		&run.Summary.FN,
		&run.Summary.Precision,
		&run.Summary.Recall,
		&run.Summary.F1,
		&run.SkippedWindows,
		&summaries,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get detection run: %w", err)
	}
	run.CreatedAt = run.CreatedAt.UTC()

	if err := json.Unmarshal(summaries, &run.Windows); err != nil {
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
	rows, err := s.pool.Query(ctx, `SELECT run_id FROM detection_runs ORDER BY created_at ASC, run_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list run ids: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect run ids: %w", err)
	}
	return ids, nil
}

func (s *RunStore) getEvents(ctx context.Context, runID string) ([]*domain.MergedEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, window_id, start_time, end_time, avg_score, peak_score, duration_ns,
			confidence, strength, event_type, validation, peak_count, first_index, last_index
		FROM merged_events
		WHERE run_id = $1
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get merged events: %w", err)
	}
	defer rows.Close()

	var events []*domain.MergedEvent
	for rows.Next() {
		var e domain.MergedEvent
		var durationNs int64
		var strength, eventType, validation string

		if err := rows.Scan(
			&e.EventID, &e.WindowID, &e.Start, &e.End, &e.AvgScore, &e.PeakScore, &durationNs,
			&e.Confidence, &strength, &eventType, &validation, &e.PeakCount, &e.FirstIndex, &e.LastIndex,
		); err != nil {
			return nil, fmt.Errorf("scan merged event row: %w", err)
		}

		e.Start = e.Start.UTC()
		e.End = e.End.UTC()
		e.Duration = time.Duration(durationNs)
		e.Strength = domain.Strength(strength)
		e.Type = domain.EventType(eventType)
		e.Validation = domain.Validation(validation)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merged event rows: %w", err)
	}
	return events, nil
}

func (s *RunStore) getFalseNegatives(ctx context.Context, runID string) ([]domain.FalseNegative, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT window_id, expected_start, expected_end, search_start, search_end, reason
		FROM false_negatives
		WHERE run_id = $1
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get false negatives: %w", err)
	}
	defer rows.Close()

	var fns []domain.FalseNegative
	for rows.Next() {
		var fn domain.FalseNegative
		var reason string

		if err := rows.Scan(
			&fn.WindowID, &fn.ExpectedStart, &fn.ExpectedEnd, &fn.SearchStart, &fn.SearchEnd, &reason,
		); err != nil {
			return nil, fmt.Errorf("scan false negative row: %w", err)
		}

		fn.ExpectedStart = fn.ExpectedStart.UTC()
		fn.ExpectedEnd = fn.ExpectedEnd.UTC()
		fn.SearchStart = fn.SearchStart.UTC()
		fn.SearchEnd = fn.SearchEnd.UTC()
		fn.Reason = domain.FalseNegativeReason(reason)
		fns = append(fns, fn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate false negative rows: %w", err)
	}
	return fns, nil
}
