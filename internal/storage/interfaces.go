package storage

import (
	"context"
	"time"

	"halo-cme-lab/internal/domain"
)

// SampleStore provides access to solar_wind_samples storage.
type SampleStore interface {
	// InsertBulk appends samples. Duplicate timestamps are allowed and keep insertion order.
	InsertBulk(ctx context.Context, samples []*domain.ParameterSample) error

	// GetByTimeRange retrieves samples within [start, end] (inclusive), ordered by time ASC.
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.ParameterSample, error)

	// GetAll retrieves every sample, ordered by time ASC.
	GetAll(ctx context.Context) ([]*domain.ParameterSample, error)
}

// CatalogStore provides access to expected_windows storage.
type CatalogStore interface {
	// Insert adds a catalog record. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, w *domain.ExpectedWindow) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, windows []*domain.ExpectedWindow) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.ExpectedWindow, error)

	// GetAll retrieves every record in catalog (insertion) order.
	GetAll(ctx context.Context) ([]*domain.ExpectedWindow, error)
}

// ScoreStore provides access to composite_scores storage.
type ScoreStore interface {
	// InsertWindowScores stores the score series of one window for a run.
	// Returns ErrDuplicateKey if (run_id, window_id) exists.
	InsertWindowScores(ctx context.Context, runID string, scores *domain.WindowScores) error

	// GetWindowScores retrieves a stored series ordered by time ASC. Returns ErrNotFound if not exists.
	GetWindowScores(ctx context.Context, runID, windowID string) (*domain.WindowScores, error)
}

// RunStore provides access to detection_runs, merged_events and false_negatives storage.
type RunStore interface {
	// Save persists a run with its events and false negatives atomically.
	// Returns ErrDuplicateKey if run_id exists.
	Save(ctx context.Context, run *domain.DetectionRun) error

	// Get retrieves a run by ID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, runID string) (*domain.DetectionRun, error)

	// ListRunIDs returns stored run IDs ordered by creation time ASC.
	ListRunIDs(ctx context.Context) ([]string, error)
}
