package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"halo-cme-lab/internal/baseline"
	"halo-cme-lab/internal/classify"
	"halo-cme-lab/internal/detection"
	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/merge"
	"halo-cme-lab/internal/observability"
	"halo-cme-lab/internal/scoring"
	"halo-cme-lab/internal/segment"
)

var day1 = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T, workers int, metrics *observability.Metrics) *Orchestrator {
	t.Helper()
	scoringOpts := scoring.DefaultOptions()
	scoringOpts.Weights = []scoring.ParameterWeight{{Name: "proton_density", Weight: 1}}
	policy, err := segment.NewPolicy(segment.PolicyNonzeroCorrective, segment.PolicyOptions{
		Percentile: 90, MinThreshold: 2.0, CorrectionTrigger: 0.6, CorrectionFactor: 0.3,
	})
	require.NoError(t, err)
	d := detection.NewDetector(
		scoring.NewEngine(scoringOpts),
		segment.NewExtractor(policy, segment.Options{NoiseFloor: 3.0, NoiseFloorRatio: 0.4, MinDuration: 2 * time.Minute}),
		classify.New(classify.DefaultOptions()),
		detection.Options{Margin: detection.DefaultMargin, MergeGap: merge.DefaultGap},
	)
	return New(Options{
		Detector: d,
		Baseline: baseline.Options{Window: 15, Epsilon: baseline.DefaultEpsilon, Daily: true},
		Workers:  workers,
		Logger:   zap.NewNop(),
		Metrics:  metrics,
	})
}

// twoSpikeSeries covers three UTC days at 5-minute cadence with a 10x spike
// at 12:00 on the first two days.
func twoSpikeSeries() *domain.Series {
	const perDay = 288
	samples := make([]*domain.ParameterSample, 3*perDay)
	for i := range samples {
		v := 400.0
		if i%perDay >= 144 && i%perDay < 149 && i/perDay < 2 {
			v = 4000
		}
		samples[i] = &domain.ParameterSample{
			Time:   day1.Add(time.Duration(i) * 5 * time.Minute),
			Values: map[string]float64{"proton_density": v},
		}
	}
	return domain.NewSeries(samples)
}

func testCatalog() []*domain.ExpectedWindow {
	far := day1.AddDate(0, 2, 0)
	return []*domain.ExpectedWindow{
		{ID: "1", ExpectedStart: day1.Add(11 * time.Hour), ExpectedEnd: day1.Add(13 * time.Hour)},
		{ID: "2", ExpectedStart: day1.Add(35 * time.Hour), ExpectedEnd: day1.Add(37 * time.Hour)},
		{ID: "3", ExpectedStart: far, ExpectedEnd: far.Add(time.Hour)},
	}
}

func TestOrchestrator_Run(t *testing.T) {
	orch := newTestOrchestrator(t, 4, nil)

	result, err := orch.Run(context.Background(), twoSpikeSeries(), testCatalog())
	require.NoError(t, err)

	require.Len(t, result.Windows, 3)
	assert.Equal(t, []string{"3"}, result.Skipped)

	// both searchable windows see both spikes
	assert.Len(t, result.Emitted, 4)
	assert.Equal(t, 2, result.Summary.TP)
	assert.Equal(t, 2, result.Summary.FP)
	assert.Equal(t, 1, result.Summary.FN)

	require.Len(t, result.FalseNegatives, 1)
	assert.Equal(t, "3", result.FalseNegatives[0].WindowID)
	assert.Equal(t, domain.ReasonEmptyWindow, result.FalseNegatives[0].Reason)

	// dedup keeps the first occurrence in catalog order
	require.Len(t, result.Events, 2)
	assert.Equal(t, "1", result.Events[0].WindowID)
	assert.Equal(t, domain.ValidationTP, result.Events[0].Validation)
	assert.Equal(t, "1", result.Events[1].WindowID)
	assert.Equal(t, domain.ValidationFP, result.Events[1].Validation)
}

func TestOrchestrator_DeterministicAcrossWorkerCounts(t *testing.T) {
	series := twoSpikeSeries()

	serial, err := newTestOrchestrator(t, 1, nil).Run(context.Background(), series, testCatalog())
	require.NoError(t, err)
	parallel, err := newTestOrchestrator(t, 8, nil).Run(context.Background(), series, testCatalog())
	require.NoError(t, err)

	assert.Equal(t, serial.Events, parallel.Events)
	assert.Equal(t, serial.FalseNegatives, parallel.FalseNegatives)
	assert.Equal(t, serial.Summary, parallel.Summary)
}

func TestOrchestrator_EmptyCatalog(t *testing.T) {
	result, err := newTestOrchestrator(t, 2, nil).Run(context.Background(), twoSpikeSeries(), nil)
	require.NoError(t, err)

	assert.Empty(t, result.Events)
	assert.Equal(t, domain.ValidationResult{}, result.Summary)
}

func TestOrchestrator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestOrchestrator(t, 2, nil).Run(ctx, twoSpikeSeries(), testCatalog())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOrchestrator_RecordsMetrics(t *testing.T) {
	metrics := observability.NewMetrics("")
	_, err := newTestOrchestrator(t, 2, metrics).Run(context.Background(), twoSpikeSeries(), testCatalog())
	require.NoError(t, err)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["halo_cme_lab_detection_windows_processed_total"])
	assert.Equal(t, 1.0, values["halo_cme_lab_detection_windows_skipped_total"])
}

func TestNew_RequiresDetector(t *testing.T) {
	_, err := New(Options{}).Run(context.Background(), twoSpikeSeries(), testCatalog())
	assert.Error(t, err)
}
