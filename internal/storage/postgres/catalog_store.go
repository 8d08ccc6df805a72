package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

// CatalogStore implements storage.CatalogStore using PostgreSQL.
type CatalogStore struct {
	pool *Pool
}

// NewCatalogStore creates a new CatalogStore.
func NewCatalogStore(pool *Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CatalogStore = (*CatalogStore)(nil)

const insertWindowQuery = `
	INSERT INTO expected_windows (
		window_id, launch_time, speed, halo_flag, expected_start, expected_end
	) VALUES ($1, $2, $3, $4, $5, $6)
`

const selectWindowColumns = `
	SELECT window_id, launch_time, speed, halo_flag, expected_start, expected_end
	FROM expected_windows
`

// Insert adds a catalog record. Returns ErrDuplicateKey if window_id exists.
func (s *CatalogStore) Insert(ctx context.Context, w *domain.ExpectedWindow) error {
	if w == nil || w.ID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertWindowQuery, windowArgs(w)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert expected window: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *CatalogStore) InsertBulk(ctx context.Context, windows []*domain.ExpectedWindow) error {
	if len(windows) == 0 {
		return nil
	}
	for _, w := range windows {
		if w == nil || w.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, w := range windows {
		if _, err := tx.Exec(ctx, insertWindowQuery, windowArgs(w)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert expected window in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *CatalogStore) GetByID(ctx context.Context, id string) (*domain.ExpectedWindow, error) {
	row := s.pool.QueryRow(ctx, selectWindowColumns+` WHERE window_id = $1`, id)
	w, err := scanWindow(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get expected window by id: %w", err)
	}
	return w, nil
}

// GetAll retrieves every record in catalog (insertion) order.
func (s *CatalogStore) GetAll(ctx context.Context) ([]*domain.ExpectedWindow, error) {
	rows, err := s.pool.Query(ctx, selectWindowColumns+` ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("get all expected windows: %w", err)
	}
	defer rows.Close()

	var windows []*domain.ExpectedWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expected window row: %w", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expected window rows: %w", err)
	}
	return windows, nil
}

func windowArgs(w *domain.ExpectedWindow) []any {
	return []any{
		w.ID,
		nullableTime(w.LaunchTime),
		nullableFloat(w.Speed),
		w.HaloFlag,
		w.ExpectedStart,
		w.ExpectedEnd,
	}
}

// scanWindow scans a single row into an ExpectedWindow.
func scanWindow(row pgx.Row) (*domain.ExpectedWindow, error) {
	var w domain.ExpectedWindow
	var launch *time.Time
	var speed *float64

	err := row.Scan(
		&w.ID,
		&launch,
		&speed,
		&w.HaloFlag,
		&w.ExpectedStart,
		&w.ExpectedEnd,
	)
	if err != nil {
		return nil, err
	}

	w.LaunchTime = timeOrZero(launch)
	w.Speed = floatOrMissing(speed)
	w.ExpectedStart = w.ExpectedStart.UTC()
	w.ExpectedEnd = w.ExpectedEnd.UTC()
	return &w, nil
}
