package baseline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halo-cme-lab/internal/domain"
)

func buildSeries(start time.Time, step time.Duration, name string, values ...float64) *domain.Series {
	samples := make([]*domain.ParameterSample, len(values))
	for i, v := range values {
		samples[i] = &domain.ParameterSample{
			Time:   start.Add(time.Duration(i) * step),
			Values: map[string]float64{name: v},
		}
	}
	return domain.NewSeries(samples)
}

func TestRolling_MinPeriodsOne(t *testing.T) {
	start := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	s := buildSeries(start, time.Minute, "p", 1, 3, 5, 7)

	got := Rolling(s, []string{"p"}, 3, DefaultEpsilon)
	st, ok := got["p"]
	require.True(t, ok)

	assert.Equal(t, 1.0, st.Mean[0])
	assert.True(t, math.IsNaN(st.Std[0]), "single observation has no deviation")
	assert.InDelta(t, 2.0, st.Mean[1], 1e-12)
	assert.InDelta(t, math.Sqrt2, st.Std[1], 1e-12)
	// window of 3 at row 3: 3, 5, 7
	assert.InDelta(t, 5.0, st.Mean[3], 1e-12)
	assert.InDelta(t, 2.0, st.Std[3], 1e-12)
}

func TestRolling_ZeroVarianceUsesEpsilon(t *testing.T) {
	start := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	s := buildSeries(start, time.Minute, "p", 4, 4, 4, 4)

	st := Rolling(s, []string{"p"}, 15, DefaultEpsilon)["p"]
	for i := 1; i < 4; i++ {
		assert.Equal(t, DefaultEpsilon, st.Std[i])
	}
}

func TestRolling_SkipsMissingInsideWindow(t *testing.T) {
	start := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	s := buildSeries(start, time.Minute, "p", 2, domain.MissingSentinel, 4)

	st := Rolling(s, []string{"p"}, 3, DefaultEpsilon)["p"]
	assert.Equal(t, 2.0, st.Mean[1])
	assert.InDelta(t, 3.0, st.Mean[2], 1e-12)
}

func TestRolling_AbsentParameterSkipped(t *testing.T) {
	start := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	s := buildSeries(start, time.Minute, "p", 1, 2)

	got := Rolling(s, []string{"p", "q"}, 3, DefaultEpsilon)
	_, ok := got["q"]
	assert.False(t, ok)
	assert.Len(t, got, 1)
}

func TestDaily_GroupsByUTCDate(t *testing.T) {
	start := time.Date(2024, 5, 10, 22, 0, 0, 0, time.UTC)
	// 22:00, 23:00 on day one; 00:00, 01:00 on day two
	s := buildSeries(start, time.Hour, "p", 1, 3, 10, 20)

	daily := Daily(s, []string{"p"}, DefaultEpsilon)
	day1 := daily["p"]["2024-05-10"]
	day2 := daily["p"]["2024-05-11"]
	assert.Equal(t, 2, day1.N)
	assert.InDelta(t, 2.0, day1.Mean, 1e-12)
	assert.InDelta(t, 15.0, day2.Mean, 1e-12)

	joined := DailyJoin(s, daily)["p"]
	assert.InDelta(t, 2.0, joined.Mean[1], 1e-12)
	assert.InDelta(t, 15.0, joined.Mean[2], 1e-12)
}

func TestCompute_DailyOptional(t *testing.T) {
	start := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	s := buildSeries(start, time.Minute, "p", 1, 2, 3)

	b := Compute(s, []string{"p"}, Options{Window: 15, Epsilon: DefaultEpsilon})
	assert.Nil(t, b.Global)
	assert.Len(t, b.Local["p"].Mean, 3)

	b = Compute(s, []string{"p"}, Options{Window: 15, Epsilon: DefaultEpsilon, Daily: true})
	require.NotNil(t, b.Global)
	assert.InDelta(t, 2.0, b.Global["p"].Mean[0], 1e-12)
}
