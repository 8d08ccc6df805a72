package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

var base = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRun(id string, created time.Time) *domain.DetectionRun {
	return &domain.DetectionRun{
		RunID:        id,
		CreatedAt:    created,
		ConfigDigest: "abc123",
		Windows: []domain.WindowSummary{
			{
				WindowID:    "1",
				Search:      domain.TimeWindow{Start: base.Add(-48 * time.Hour), End: base.Add(72 * time.Hour)},
				SampleCount: 100,
				Threshold:   2.5,
				MaxScore:    30,
				Candidates:  1,
				Merged:      1,
			},
			{WindowID: "2", Skipped: true, SkipReason: "empty_window"},
		},
		SkippedWindows: []string{"2"},
		Events: []*domain.MergedEvent{
			{
				EventID:    "e1",
				WindowID:   "1",
				Start:      base.Add(12 * time.Hour),
				End:        base.Add(13*time.Hour + 30*time.Second),
				AvgScore:   20,
				PeakScore:  30,
				Duration:   time.Hour,
				Confidence: 66.7,
				Strength:   domain.StrengthWeak,
				Type:       domain.EventTypeClustered,
				Validation: domain.ValidationTP,
				PeakCount:  2,
				FirstIndex: 10,
				LastIndex:  22,
			},
		},
		FalseNegatives: []domain.FalseNegative{
			{
				WindowID:      "2",
				ExpectedStart: base.Add(96 * time.Hour),
				ExpectedEnd:   base.Add(120 * time.Hour),
				SearchStart:   base.Add(48 * time.Hour),
				SearchEnd:     base.Add(168 * time.Hour),
				Reason:        domain.ReasonEmptyWindow,
			},
		},
		Summary: domain.ValidationResult{TP: 1, FN: 1, Precision: 1, Recall: 0.5, F1: 2.0 / 3},
	}
}

func TestRunStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := testRun("run-1", base)
	require.NoError(t, store.Save(ctx, run))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, run.RunID, got.RunID)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, run.Summary, got.Summary)
	assert.Equal(t, run.SkippedWindows, got.SkippedWindows)

	require.Len(t, got.Windows, 2)
	assert.Equal(t, 100, got.Windows[0].SampleCount)
	assert.True(t, run.Windows[0].Search.Start.Equal(got.Windows[0].Search.Start))
	assert.True(t, got.Windows[1].Skipped)

	require.Len(t, got.Events, 1)
	e := got.Events[0]
	assert.Equal(t, "e1", e.EventID)
	assert.True(t, run.Events[0].End.Equal(e.End))
	assert.Equal(t, time.Hour, e.Duration)
	assert.Equal(t, 66.7, e.Confidence)
	assert.Equal(t, domain.StrengthWeak, e.Strength)
	assert.Equal(t, domain.ValidationTP, e.Validation)
	assert.Equal(t, 10, e.FirstIndex)

	require.Len(t, got.FalseNegatives, 1)
	fn := got.FalseNegatives[0]
	assert.Equal(t, domain.ReasonEmptyWindow, fn.Reason)
	assert.True(t, run.FalseNegatives[0].ExpectedStart.Equal(fn.ExpectedStart))
	assert.True(t, run.FalseNegatives[0].SearchEnd.Equal(fn.SearchEnd))
}

func TestRunStore_SaveDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testRun("run-dup", base)))
	assert.ErrorIs(t, store.Save(ctx, testRun("run-dup", base)), storage.ErrDuplicateKey)
}

func TestRunStore_SaveInvalid(t *testing.T) {
	store := newTestStore(t)
	assert.ErrorIs(t, store.Save(context.Background(), nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Save(context.Background(), &domain.DetectionRun{}), storage.ErrInvalidInput)
}

func TestRunStore_GetNotFound(t *testing.T) {
	_, err := newTestStore(t).Get(context.Background(), "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_ListRunIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testRun("later", base.Add(time.Hour))))
	require.NoError(t, store.Save(ctx, testRun("earlier", base)))

	ids, err := store.ListRunIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"earlier", "later"}, ids)
}

func TestOpen_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, testRun("persisted", base)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	ids, err := s.ListRunIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"persisted"}, ids)
}
