// Package stats holds the small numeric helpers shared by the detection stages.
// Missing values (NaN) are skipped everywhere.
package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrNoValues is returned when a statistic is requested over no valid values.
var ErrNoValues = errors.New("no valid values")

// Valid returns the non-missing values of xs in their original order.
func Valid(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Percentile returns the pct-th percentile (pct in [0, 100]) of the valid values
// of xs, interpolating linearly between the closest ranks.
func Percentile(xs []float64, pct float64) (float64, error) {
	valid := Valid(xs)
	if len(valid) == 0 {
		return 0, ErrNoValues
	}
	sort.Float64s(valid)
	return PercentileSorted(valid, pct/100), nil
}

// PercentileSorted returns the p-quantile (p in [0, 1]) of an ascending slice.
func PercentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// MeanStd returns the mean and sample standard deviation (n-1) of the valid
// values of xs along with their count. The mean is NaN when n == 0 and the
// standard deviation is NaN when n < 2.
func MeanStd(xs []float64) (mean, std float64, n int) {
	valid := Valid(xs)
	n = len(valid)
	switch n {
	case 0:
		return math.NaN(), math.NaN(), 0
	case 1:
		return valid[0], math.NaN(), 1
	}
	mean, std = stat.MeanStdDev(valid, nil)
	return mean, std, n
}

// Max returns the largest valid value of xs, or 0 if there is none.
func Max(xs []float64) float64 {
	best := math.Inf(-1)
	for _, x := range xs {
		if !math.IsNaN(x) && x > best {
			best = x
		}
	}
	if math.IsInf(best, -1) {
		return 0
	}
	return best
}

// Mean returns the arithmetic mean of the valid values of xs, or 0 if there is none.
func Mean(xs []float64) float64 {
	valid := Valid(xs)
	if len(valid) == 0 {
		return 0
	}
	return stat.Mean(valid, nil)
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}
