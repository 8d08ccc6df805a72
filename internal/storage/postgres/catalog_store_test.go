package postgres

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

func testWindow(id string, offset time.Duration) *domain.ExpectedWindow {
	return &domain.ExpectedWindow{
		ID:            id,
		LaunchTime:    base.Add(offset - 48*time.Hour),
		Speed:         1100,
		HaloFlag:      "IV",
		ExpectedStart: base.Add(offset),
		ExpectedEnd:   base.Add(offset + 24*time.Hour),
	}
}

func TestCatalogStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCatalogStore(pool)
	ctx := context.Background()

	w := testWindow("101", 0)
	require.NoError(t, store.Insert(ctx, w))

	got, err := store.GetByID(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, w.HaloFlag, got.HaloFlag)
	assert.Equal(t, w.Speed, got.Speed)
	assert.True(t, w.LaunchTime.Equal(got.LaunchTime))
	assert.True(t, w.ExpectedStart.Equal(got.ExpectedStart))
	assert.True(t, w.ExpectedEnd.Equal(got.ExpectedEnd))
	assert.Equal(t, time.UTC, got.ExpectedStart.Location())
}

func TestCatalogStore_MissingOptionalFields(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCatalogStore(pool)
	ctx := context.Background()

	w := &domain.ExpectedWindow{
		ID:            "bare",
		Speed:         math.NaN(),
		ExpectedStart: base,
		ExpectedEnd:   base.Add(time.Hour),
	}
	require.NoError(t, store.Insert(ctx, w))

	got, err := store.GetByID(ctx, "bare")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.Speed))
	assert.True(t, got.LaunchTime.IsZero())
}

func TestCatalogStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCatalogStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testWindow("dup", 0)))
	assert.ErrorIs(t, store.Insert(ctx, testWindow("dup", 0)), storage.ErrDuplicateKey)
}

func TestCatalogStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewCatalogStore(pool).GetByID(context.Background(), "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCatalogStore_InsertBulkKeepsOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCatalogStore(pool)
	ctx := context.Background()

	// Catalog order differs from both id and time order.
	windows := []*domain.ExpectedWindow{
		testWindow("30", 48*time.Hour),
		testWindow("10", 0),
		testWindow("20", 96*time.Hour),
	}
	require.NoError(t, store.InsertBulk(ctx, windows))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "30", all[0].ID)
	assert.Equal(t, "10", all[1].ID)
	assert.Equal(t, "20", all[2].ID)
}

func TestCatalogStore_InsertBulkDuplicateRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCatalogStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testWindow("existing", 0)))

	err := store.InsertBulk(ctx, []*domain.ExpectedWindow{
		testWindow("new", 24*time.Hour),
		testWindow("existing", 0),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "new")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
