package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"halo-cme-lab/internal/config"
	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/observability"
	"halo-cme-lab/internal/scoring"
	"halo-cme-lab/internal/storage"
	"halo-cme-lab/internal/storage/memory"
)

var fixedClock = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

func init() {
	commitHash = func() string { return "abc1234" }
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Detection.Weights = []scoring.ParameterWeight{{Name: "proton_density", Weight: 1}}
	cfg.Detection.DailyBaseline = true
	cfg.Detection.Workers = 4
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg)
	require.NoError(t, err)
	return p.WithClock(fixedClock).WithLogger(zap.NewNop())
}

type recordingPublisher struct {
	runIDs []string
	events int
}

func (r *recordingPublisher) Publish(_ context.Context, runID string, events []*domain.MergedEvent) (int, error) {
	r.runIDs = append(r.runIDs, runID)
	r.events += len(events)
	return len(events), nil
}

type staticSource struct {
	samples []*domain.ParameterSample
	catalog []*domain.ExpectedWindow
}

func (s staticSource) Load(context.Context) ([]*domain.ParameterSample, []*domain.ExpectedWindow, error) {
	return s.samples, s.catalog, nil
}
func (staticSource) Name() string { return "static" }
func (staticSource) ReplayArgs() string { return "" }

func TestPipeline_RunFixtures(t *testing.T) {
	cfg := testConfig(t)
	runStore := memory.NewRunStore()
	scoreStore := memory.NewScoreStore()
	pub := &recordingPublisher{}
	metrics := observability.NewMetrics("")
	textfile := filepath.Join(t.TempDir(), "cmelab.prom")

	p := newTestPipeline(t, cfg).
		WithRunStore(runStore).
		WithScoreStore(scoreStore).
		WithPublisher(pub).
		WithMetrics(metrics, textfile)

	result, err := p.Run(context.Background(), FixtureSource{})
	require.NoError(t, err)

	run := result.Run
	assert.Equal(t, 2, run.Summary.TP)
	assert.Equal(t, 2, run.Summary.FP)
	assert.Equal(t, 1, run.Summary.FN)
	assert.Equal(t, []string{"3"}, run.SkippedWindows)
	require.Len(t, run.Events, 2)
	require.Len(t, run.FalseNegatives, 1)
	assert.Equal(t, "3", run.FalseNegatives[0].WindowID)
	assert.Equal(t, fixedClock(), run.CreatedAt)

	// artifacts
	for _, name := range []string{EventsFile, SummaryFile, MetricsFile, FalseNegativesFile, ReportFile} {
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, name))
	}
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, DebugScoresDir, "CME_1_scores.csv"))
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, DebugScoresDir, "CME_2_scores.csv"))
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, DebugScoresDir, "CME_3_scores.csv"))

	events, err := os.ReadFile(filepath.Join(cfg.Output.Dir, EventsFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(events)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "1,"))

	// persistence
	assert.True(t, result.Stored)
	stored, err := runStore.Get(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Summary, stored.Summary)

	scores, err := scoreStore.GetWindowScores(context.Background(), run.RunID, "1")
	require.NoError(t, err)
	assert.NotEmpty(t, scores.Points)
	_, err = scoreStore.GetWindowScores(context.Background(), run.RunID, "3")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// publishing
	assert.Equal(t, 2, result.Published)
	assert.Equal(t, []string{run.RunID}, pub.runIDs)

	// metrics
	prom, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "halo_cme_lab_evaluation_f1")
	assert.Contains(t, string(prom), "halo_cme_lab_events_published_total 2")

	// report
	assert.Equal(t, "cmelab detect --use-fixtures", result.Report.Reproducibility.ReplayCommand)
	assert.Equal(t, "abc1234", result.Report.Reproducibility.CommitHash)
	assert.Equal(t, 4, result.Report.DataSummary.EmittedEvents)
	assert.False(t, result.Report.DataQuality.AllChecksPassed)
}

func TestPipeline_Deterministic(t *testing.T) {
	dirs := make([]string, 2)
	runIDs := make([]string, 2)
	for i := range dirs {
		cfg := testConfig(t)
		cfg.Detection.Workers = i*7 + 1
		dirs[i] = cfg.Output.Dir

		result, err := newTestPipeline(t, cfg).Run(context.Background(), FixtureSource{})
		require.NoError(t, err)
		runIDs[i] = result.Run.RunID
	}

	assert.Equal(t, runIDs[0], runIDs[1])

	names := []string{
		EventsFile, SummaryFile, MetricsFile, FalseNegativesFile, ReportFile,
		filepath.Join(DebugScoresDir, "CME_1_scores.csv"),
		filepath.Join(DebugScoresDir, "CME_2_scores.csv"),
	}
	for _, name := range names {
		a, err := os.ReadFile(filepath.Join(dirs[0], name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(dirs[1], name))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), name)
	}
}

func TestPipeline_RerunAlreadyStored(t *testing.T) {
	runStore := memory.NewRunStore()

	first, err := newTestPipeline(t, testConfig(t)).WithRunStore(runStore).Run(context.Background(), FixtureSource{})
	require.NoError(t, err)
	assert.True(t, first.Stored)

	second, err := newTestPipeline(t, testConfig(t)).WithRunStore(runStore).Run(context.Background(), FixtureSource{})
	require.NoError(t, err)
	assert.False(t, second.Stored)
	assert.Equal(t, first.Run.RunID, second.Run.RunID)

	ids, err := runStore.ListRunIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestPipeline_ConfigChangesRunID(t *testing.T) {
	a, err := newTestPipeline(t, testConfig(t)).Run(context.Background(), FixtureSource{})
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Detection.MergeGap = 20 * time.Minute
	b, err := newTestPipeline(t, cfg).Run(context.Background(), FixtureSource{})
	require.NoError(t, err)

	assert.NotEqual(t, a.Run.ConfigDigest, b.Run.ConfigDigest)
	assert.NotEqual(t, a.Run.RunID, b.Run.RunID)
}

func TestPipeline_CSVSource(t *testing.T) {
	dir := t.TempDir()

	var series strings.Builder
	series.WriteString("Time,proton_density\n")
	for _, s := range FixtureSeries() {
		fmt.Fprintf(&series, "%s,%g\n", s.Time.Format("2006-01-02 15:04:05"), s.Values["proton_density"])
	}
	seriesPath := filepath.Join(dir, "series.csv")
	require.NoError(t, os.WriteFile(seriesPath, []byte(series.String()), 0644))

	var catalog strings.Builder
	catalog.WriteString("CME_Number,Launch_Time,Speed,Halo_Flag,Expected_Start,Expected_End\n")
	for _, w := range FixtureCatalog() {
		fmt.Fprintf(&catalog, "%s,%s,%g,%s,%s,%s\n", w.ID,
			w.LaunchTime.Format(time.RFC3339), w.Speed, w.HaloFlag,
			w.ExpectedStart.Format(time.RFC3339), w.ExpectedEnd.Format(time.RFC3339))
	}
	catalogPath := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalog.String()), 0644))

	fromCSV, err := newTestPipeline(t, testConfig(t)).Run(context.Background(),
		&CSVSource{SeriesPath: seriesPath, CatalogPath: catalogPath})
	require.NoError(t, err)
	fromFixtures, err := newTestPipeline(t, testConfig(t)).Run(context.Background(), FixtureSource{})
	require.NoError(t, err)

	assert.Equal(t, fromFixtures.Run.Summary, fromCSV.Run.Summary)
	assert.Equal(t, len(fromFixtures.Run.Events), len(fromCSV.Run.Events))
	assert.Contains(t, fromCSV.Report.Reproducibility.ReplayCommand, "--series")
}

func TestPipeline_StoreSource(t *testing.T) {
	ctx := context.Background()
	samples := memory.NewSampleStore()
	catalog := memory.NewCatalogStore()
	require.NoError(t, LoadFixtures(ctx, samples, catalog))

	result, err := newTestPipeline(t, testConfig(t)).Run(ctx, &StoreSource{Samples: samples, Catalog: catalog})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Run.Summary.TP)
	assert.Equal(t, "cmelab detect --source database", result.Report.Reproducibility.ReplayCommand)
}

func TestPipeline_EmptyInputs(t *testing.T) {
	p := newTestPipeline(t, testConfig(t))

	_, err := p.Run(context.Background(), staticSource{catalog: FixtureCatalog()})
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = p.Run(context.Background(), staticSource{samples: FixtureSeries()})
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestNewPipeline_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Dir = ""
	_, err := NewPipeline(cfg)
	assert.Error(t, err)

	_, err = NewPipeline(nil)
	assert.Error(t, err)
}

func TestComputeInputDigest(t *testing.T) {
	series := domain.NewSeries(FixtureSeries())
	catalog := FixtureCatalog()

	d1 := computeInputDigest(series, catalog)
	assert.Len(t, d1, 64)
	assert.Equal(t, d1, computeInputDigest(domain.NewSeries(FixtureSeries()), FixtureCatalog()))

	changed := FixtureCatalog()
	changed[0].ExpectedEnd = changed[0].ExpectedEnd.Add(time.Minute)
	assert.NotEqual(t, d1, computeInputDigest(series, changed))

	// the fill sentinel and NaN are the same missing value
	withSentinel := FixtureSeries()
	withSentinel[0].Values["proton_density"] = domain.MissingSentinel
	withNaN := FixtureSeries()
	withNaN[0].Values["proton_density"] = domain.Missing()
	assert.Equal(t,
		computeInputDigest(domain.NewSeries(withSentinel), catalog),
		computeInputDigest(domain.NewSeries(withNaN), catalog))
}
