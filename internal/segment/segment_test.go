package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func minutes(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = t0.Add(time.Duration(i) * time.Minute)
	}
	return out
}

func defaultPolicyOptions() PolicyOptions {
	return PolicyOptions{Percentile: 90, MinThreshold: 2.0, CorrectionTrigger: 0.6, CorrectionFactor: 0.3}
}

func defaultExtractor(t *testing.T) *Extractor {
	t.Helper()
	p, err := NewPolicy(PolicyNonzeroCorrective, defaultPolicyOptions())
	require.NoError(t, err)
	return NewExtractor(p, Options{NoiseFloor: 3.0, NoiseFloorRatio: 0.4, MinDuration: 2 * time.Minute})
}

func TestRuns_BoundaryIndices(t *testing.T) {
	scores := []float64{5, 5, 0, 0, 5, 0, 5, 5, 5}
	runs := Runs(scores, 1)
	assert.Equal(t, []Run{{0, 1}, {4, 4}, {6, 8}}, runs)
}

func TestRuns_StrictlyAboveThreshold(t *testing.T) {
	assert.Empty(t, Runs([]float64{2, 2, 2}, 2))
}

func TestNonzeroCorrective_NoNonzeroScores(t *testing.T) {
	p, err := NewPolicy(PolicyNonzeroCorrective, defaultPolicyOptions())
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Threshold([]float64{0, 0, 0}))
}

func TestNonzeroCorrective_LowersThresholdNearMax(t *testing.T) {
	p, err := NewPolicy(PolicyNonzeroCorrective, defaultPolicyOptions())
	require.NoError(t, err)
	// single nonzero score: p90 = 50 > 0.6*50, so max(2, 0.3*50)
	assert.InDelta(t, 15.0, p.Threshold([]float64{0, 0, 50, 0}), 1e-9)
}

func TestNonzeroCorrective_KeepsPercentile(t *testing.T) {
	p, err := NewPolicy(PolicyNonzeroCorrective, defaultPolicyOptions())
	require.NoError(t, err)
	scores := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 100}
	// p90 of nonzero = 1 + 0.0 interpolation at idx 9 → 1
	assert.InDelta(t, 1.0, p.Threshold(scores), 1e-9)
}

func TestPercentilePolicy_FloorsAtMinimum(t *testing.T) {
	p, err := NewPolicy(PolicyPercentile, defaultPolicyOptions())
	require.NoError(t, err)
	assert.Equal(t, PolicyPercentile, p.Name())
	assert.Equal(t, 2.0, p.Threshold([]float64{0, 0, 1, 0}))
	assert.InDelta(t, 9.1, p.Threshold([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}), 1e-9)
}

func TestNewPolicy_Unknown(t *testing.T) {
	_, err := NewPolicy("median", defaultPolicyOptions())
	assert.Error(t, err)
}

func TestExtract_SpikeSegment(t *testing.T) {
	scores := make([]float64, 60)
	for i := 20; i < 25; i++ {
		scores[i] = 10
	}
	res := defaultExtractor(t).Extract(minutes(len(scores)), scores)

	assert.InDelta(t, 3.0, res.Threshold, 1e-9)
	assert.Equal(t, 10.0, res.MaxScore)
	require.Len(t, res.Segments, 1)
	seg := res.Segments[0]
	assert.Equal(t, t0.Add(20*time.Minute), seg.Start)
	assert.Equal(t, t0.Add(24*time.Minute), seg.End)
	assert.Equal(t, 4*time.Minute, seg.Duration)
	assert.Equal(t, 10.0, seg.AvgScore)
	assert.Equal(t, 20, seg.FirstIndex)
	assert.Equal(t, 24, seg.LastIndex)
}

func TestExtract_DropsShortAndWeakRuns(t *testing.T) {
	scores := make([]float64, 60)
	// long strong run
	for i := 10; i < 15; i++ {
		scores[i] = 20
	}
	// single-sample spike: duration 0
	scores[30] = 20
	res := defaultExtractor(t).Extract(minutes(len(scores)), scores)

	assert.Equal(t, 2, res.Runs)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, 10, res.Segments[0].FirstIndex)
}

func TestExtract_NoiseFloorRelativeToThreshold(t *testing.T) {
	e := defaultExtractor(t)
	assert.Equal(t, 3.0, e.NoiseFloor(2))
	assert.InDelta(t, 8.0, e.NoiseFloor(20), 1e-9)
}

func TestExtract_SegmentsOrderedAndDisjoint(t *testing.T) {
	scores := make([]float64, 100)
	for _, start := range []int{5, 40, 70} {
		for i := start; i < start+6; i++ {
			scores[i] = 12
		}
	}
	res := defaultExtractor(t).Extract(minutes(len(scores)), scores)

	require.Len(t, res.Segments, 3)
	for i := 1; i < len(res.Segments); i++ {
		assert.True(t, res.Segments[i-1].End.Before(res.Segments[i].Start))
	}
}
