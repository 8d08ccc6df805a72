package clickhouse

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

func TestSampleStore_InsertAndGetAll(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSampleStore(conn)
	ctx := context.Background()

	samples := []*domain.ParameterSample{
		{Time: base.Add(time.Minute), Values: map[string]float64{"proton_speed": 410, "proton_density": math.NaN()}},
		{Time: base, Values: map[string]float64{"proton_speed": 400, "proton_density": 5}},
		{Time: base.Add(time.Minute), Values: map[string]float64{"proton_speed": 411, "proton_density": -1e31}},
	}
	require.NoError(t, store.InsertBulk(ctx, samples))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, base.Equal(got[0].Time))
	assert.Equal(t, 400.0, got[0].Values["proton_speed"])
	assert.Equal(t, 5.0, got[0].Values["proton_density"])

	// Duplicate timestamps keep insertion order.
	assert.Equal(t, 410.0, got[1].Values["proton_speed"])
	assert.Equal(t, 411.0, got[2].Values["proton_speed"])
	assert.True(t, math.IsNaN(got[1].Values["proton_density"]))
	assert.True(t, math.IsNaN(got[2].Values["proton_density"]))
}

func TestSampleStore_SequenceContinuesAcrossBatches(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSampleStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.ParameterSample{
		{Time: base, Values: map[string]float64{"bz": 1}},
	}))
	require.NoError(t, store.InsertBulk(ctx, []*domain.ParameterSample{
		{Time: base, Values: map[string]float64{"bz": 2}},
	}))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Values["bz"])
	assert.Equal(t, 2.0, got[1].Values["bz"])
}

func TestSampleStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSampleStore(conn)
	ctx := context.Background()

	var samples []*domain.ParameterSample
	for i := 0; i < 10; i++ {
		samples = append(samples, &domain.ParameterSample{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Values: map[string]float64{"bt": float64(i)},
		})
	}
	require.NoError(t, store.InsertBulk(ctx, samples))

	got, err := store.GetByTimeRange(ctx, base.Add(2*time.Hour), base.Add(5*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, 2.0, got[0].Values["bt"])
	assert.Equal(t, 5.0, got[3].Values["bt"])
}

func TestSampleStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	err := NewSampleStore(conn).InsertBulk(context.Background(), []*domain.ParameterSample{{}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
