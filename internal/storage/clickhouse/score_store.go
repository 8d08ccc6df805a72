package clickhouse

import (
	"context"
	"fmt"
	"time"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

// ScoreStore implements storage.ScoreStore using ClickHouse.
type ScoreStore struct {
	conn *Conn
}

// NewScoreStore creates a new ScoreStore.
func NewScoreStore(conn *Conn) *ScoreStore {
	return &ScoreStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScoreStore = (*ScoreStore)(nil)

// InsertWindowScores stores the score series of one window for a run.
// Returns ErrDuplicateKey if (run_id, window_id) exists.
func (s *ScoreStore) InsertWindowScores(ctx context.Context, runID string, scores *domain.WindowScores) error {
	if runID == "" || scores == nil || scores.WindowID == "" {
		return storage.ErrInvalidInput
	}
	if len(scores.Points) == 0 {
		return nil
	}

	exists, err := s.exists(ctx, runID, scores.WindowID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO composite_scores (
			run_id, window_id, idx, ts, score, threshold, max_score
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, p := range scores.Points {
		err = batch.Append(
			runID, scores.WindowID, uint32(i), p.Time.UTC(),
			p.Score, scores.Threshold, scores.MaxScore,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetWindowScores retrieves a stored series ordered by time ASC. Returns ErrNotFound if not exists.
func (s *ScoreStore) GetWindowScores(ctx context.Context, runID, windowID string) (*domain.WindowScores, error) {
	query := `
		SELECT ts, score, threshold, max_score
		FROM composite_scores
		WHERE run_id = ? AND window_id = ?
		ORDER BY idx ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, windowID)
	if err != nil {
		return nil, fmt.Errorf("query window scores: %w", err)
	}
	defer rows.Close()

	scores := &domain.WindowScores{WindowID: windowID}
	for rows.Next() {
		var ts time.Time
		var p domain.ScorePoint
		if err := rows.Scan(&ts, &p.Score, &scores.Threshold, &scores.MaxScore); err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		p.Time = ts.UTC()
		scores.Points = append(scores.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}

	if len(scores.Points) == 0 {
		return nil, storage.ErrNotFound
	}
	return scores, nil
}

// exists checks if a series for (run_id, window_id) exists.
func (s *ScoreStore) exists(ctx context.Context, runID, windowID string) (bool, error) {
	query := `
		SELECT count(*) FROM composite_scores
		WHERE run_id = ? AND window_id = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, runID, windowID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
