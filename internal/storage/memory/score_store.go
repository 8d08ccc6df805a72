package memory

import (
	"context"
	"sync"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

// ScoreStore is an in-memory implementation of storage.ScoreStore.
type ScoreStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WindowScores // keyed by run_id|window_id
}

// NewScoreStore creates a new in-memory score store.
func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		data: make(map[string]*domain.WindowScores),
	}
}

func scoreKey(runID, windowID string) string {
	return runID + "|" + windowID
}

// InsertWindowScores stores one window's series. Returns ErrDuplicateKey if exists.
func (s *ScoreStore) InsertWindowScores(_ context.Context, runID string, scores *domain.WindowScores) error {
	if scores == nil || runID == "" || scores.WindowID == "" {
		return storage.ErrInvalidInput
	}

	key := scoreKey(runID, scores.WindowID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = copyScores(scores)
	return nil
}

// GetWindowScores retrieves a stored series. Returns ErrNotFound if not exists.
func (s *ScoreStore) GetWindowScores(_ context.Context, runID, windowID string) (*domain.WindowScores, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores, exists := s.data[scoreKey(runID, windowID)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyScores(scores), nil
}

func copyScores(scores *domain.WindowScores) *domain.WindowScores {
	out := *scores
	out.Points = make([]domain.ScorePoint, len(scores.Points))
	copy(out.Points, scores.Points)
	return &out
}

// Verify interface compliance at compile time.
var _ storage.ScoreStore = (*ScoreStore)(nil)
