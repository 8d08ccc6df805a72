package memory

import (
	"context"
	"sync"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

// CatalogStore is an in-memory implementation of storage.CatalogStore.
type CatalogStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.ExpectedWindow // keyed by id
	order []string                          // catalog order
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		data: make(map[string]*domain.ExpectedWindow),
	}
}

// Insert adds a catalog record. Returns ErrDuplicateKey if id exists.
func (s *CatalogStore) Insert(_ context.Context, w *domain.ExpectedWindow) error {
	if w == nil || w.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[w.ID]; exists {
		return storage.ErrDuplicateKey
	}

	windowCopy := *w
	s.data[w.ID] = &windowCopy
	s.order = append(s.order, w.ID)
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *CatalogStore) InsertBulk(_ context.Context, windows []*domain.ExpectedWindow) error {
	if len(windows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(windows))

	// First pass: check for duplicates (existing + intra-batch)
	for _, w := range windows {
		if w == nil || w.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[w.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[w.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[w.ID] = struct{}{}
	}

	// Second pass: insert all
	for _, w := range windows {
		windowCopy := *w
		s.data[w.ID] = &windowCopy
		s.order = append(s.order, w.ID)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *CatalogStore) GetByID(_ context.Context, id string) (*domain.ExpectedWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	windowCopy := *w
	return &windowCopy, nil
}

// GetAll retrieves every record in catalog order.
func (s *CatalogStore) GetAll(_ context.Context) ([]*domain.ExpectedWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ExpectedWindow, 0, len(s.order))
	for _, id := range s.order {
		windowCopy := *s.data[id]
		result = append(result, &windowCopy)
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.CatalogStore = (*CatalogStore)(nil)
