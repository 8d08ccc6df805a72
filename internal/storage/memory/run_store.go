package memory

import (
	"context"
	"sort"
	"sync"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DetectionRun // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.DetectionRun),
	}
}

// Save persists a run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Save(_ context.Context, run *domain.DetectionRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[run.RunID] = copyRun(run)
	return nil
}

// Get retrieves a run by ID. Returns ErrNotFound if not exists.
func (s *RunStore) Get(_ context.Context, runID string) (*domain.DetectionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRun(run), nil
}

// ListRunIDs returns stored run IDs ordered by creation time ASC.
func (s *RunStore) ListRunIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*domain.DetectionRun, 0, len(s.data))
	for _, run := range s.data {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].RunID < runs[j].RunID
		}
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})

	ids := make([]string, len(runs))
	for i, run := range runs {
		ids[i] = run.RunID
	}
	return ids, nil
}

func copyRun(run *domain.DetectionRun) *domain.DetectionRun {
	out := *run
	out.Windows = append([]domain.WindowSummary(nil), run.Windows...)
	out.SkippedWindows = append([]string(nil), run.SkippedWindows...)
	out.FalseNegatives = append([]domain.FalseNegative(nil), run.FalseNegatives...)
	out.Events = make([]*domain.MergedEvent, len(run.Events))
	for i, e := range run.Events {
		eventCopy := *e
		out.Events[i] = &eventCopy
	}
	return &out
}

// Verify interface compliance at compile time.
var _ storage.RunStore = (*RunStore)(nil)
