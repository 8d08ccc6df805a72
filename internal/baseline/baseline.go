// Package baseline computes the per-parameter reference statistics that anomaly
// scores are normalized against: a trailing rolling window over consecutive
// samples and an optional per-UTC-day quiet-time baseline.
package baseline

import (
	"math"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/stats"
)

// DefaultEpsilon replaces a standard deviation of exactly zero.
const DefaultEpsilon = 1e-6

// dayLayout keys the daily baseline by UTC calendar date.
const dayLayout = "2006-01-02"

// Stats holds row-aligned mean and standard deviation for one parameter.
// Missing entries are NaN.
type Stats struct {
	Mean []float64
	Std  []float64
}

// Slice returns the rows [lo, hi).
func (s Stats) Slice(lo, hi int) Stats {
	return Stats{Mean: s.Mean[lo:hi:hi], Std: s.Std[lo:hi:hi]}
}

// Moment is the mean and standard deviation of one group of observations.
type Moment struct {
	Mean float64
	Std  float64
	N    int
}

// Options configures the estimator.
type Options struct {
	Window  int     // rolling window length in samples
	Epsilon float64 // substitute for a zero standard deviation
	Daily   bool    // compute the per-day baseline as well
}

// Baseline is the precomputed, read-only set of statistics for a series.
type Baseline struct {
	Local  map[string]Stats
	Global map[string]Stats // nil unless Options.Daily
}

// Compute builds the rolling (and optionally daily) baseline for params.
// Parameters absent from the series are skipped.
func Compute(series *domain.Series, params []string, opts Options) *Baseline {
	b := &Baseline{Local: Rolling(series, params, opts.Window, opts.Epsilon)}
	if opts.Daily {
		b.Global = DailyJoin(series, Daily(series, params, opts.Epsilon))
	}
	return b
}

// Rolling computes trailing-window statistics over window consecutive samples.
// A row needs one valid observation for a mean and two for a standard deviation.
func Rolling(series *domain.Series, params []string, window int, epsilon float64) map[string]Stats {
	if window < 1 {
		window = 1
	}
	out := make(map[string]Stats, len(params))
	for _, name := range params {
		col, ok := series.Column(name)
		if !ok {
			continue
		}
		n := len(col)
		st := Stats{Mean: make([]float64, n), Std: make([]float64, n)}
		for i := 0; i < n; i++ {
			lo := i - window + 1
			if lo < 0 {
				lo = 0
			}
			mean, std, _ := stats.MeanStd(col[lo : i+1])
			st.Mean[i] = mean
			st.Std[i] = substituteZero(std, epsilon)
		}
		out[name] = st
	}
	return out
}

// Daily computes per-parameter statistics for each UTC calendar day.
func Daily(series *domain.Series, params []string, epsilon float64) map[string]map[string]Moment {
	times := series.Times()
	out := make(map[string]map[string]Moment, len(params))
	for _, name := range params {
		col, ok := series.Column(name)
		if !ok {
			continue
		}
		groups := make(map[string][]float64)
		for i, t := range times {
			day := t.UTC().Format(dayLayout)
			groups[day] = append(groups[day], col[i])
		}
		days := make(map[string]Moment, len(groups))
		for day, values := range groups {
			mean, std, cnt := stats.MeanStd(values)
			days[day] = Moment{Mean: mean, Std: substituteZero(std, epsilon), N: cnt}
		}
		out[name] = days
	}
	return out
}

// DailyJoin maps per-day statistics back onto each row of the series.
func DailyJoin(series *domain.Series, daily map[string]map[string]Moment) map[string]Stats {
	times := series.Times()
	out := make(map[string]Stats, len(daily))
	for name, days := range daily {
		st := Stats{Mean: make([]float64, len(times)), Std: make([]float64, len(times))}
		for i, t := range times {
			m, ok := days[t.UTC().Format(dayLayout)]
			if !ok {
				st.Mean[i], st.Std[i] = math.NaN(), math.NaN()
				continue
			}
			st.Mean[i], st.Std[i] = m.Mean, m.Std
		}
		out[name] = st
	}
	return out
}

func substituteZero(std, epsilon float64) float64 {
	if std == 0 {
		return epsilon
	}
	return std
}
