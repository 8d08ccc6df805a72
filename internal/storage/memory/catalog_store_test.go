package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

func window(id string, hour int) *domain.ExpectedWindow {
	start := base.Add(time.Duration(hour) * time.Hour)
	return &domain.ExpectedWindow{ID: id, ExpectedStart: start, ExpectedEnd: start.Add(12 * time.Hour)}
}

func TestCatalogStore_InsertAndGet(t *testing.T) {
	store := NewCatalogStore()
	ctx := context.Background()

	if err := store.Insert(ctx, window("1", 0)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.ExpectedStart.Equal(base) {
		t.Errorf("ExpectedStart mismatch: got %v", got.ExpectedStart)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCatalogStore_DuplicateKey(t *testing.T) {
	store := NewCatalogStore()
	ctx := context.Background()

	if err := store.Insert(ctx, window("1", 0)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, window("1", 5)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestCatalogStore_InsertBulkPartialDuplicate(t *testing.T) {
	store := NewCatalogStore()
	ctx := context.Background()

	if err := store.Insert(ctx, window("1", 0)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.ExpectedWindow{window("2", 1), window("1", 2)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Verify no partial insert
	all, _ := store.GetAll(ctx)
	if len(all) != 1 {
		t.Errorf("Expected 1 record (rollback), got %d", len(all))
	}
}

func TestCatalogStore_GetAllKeepsCatalogOrder(t *testing.T) {
	store := NewCatalogStore()
	ctx := context.Background()

	// later windows first: order must follow insertion, not time
	if err := store.InsertBulk(ctx, []*domain.ExpectedWindow{window("9", 50), window("3", 10), window("5", 30)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	want := []string{"9", "3", "5"}
	for i, w := range all {
		if w.ID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, w.ID, want[i])
		}
	}
}
