// Package classify assigns strength, confidence and shape to merged events.
package classify

import (
	"math"
	"sort"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/merge"
	"halo-cme-lab/internal/stats"
)

// Band is one strength rule. An event matches when its peak exceeds PeakAbove
// or its average exceeds AvgAbove.
type Band struct {
	Label     domain.Strength `mapstructure:"label" yaml:"label"`
	PeakAbove float64         `mapstructure:"peak_above" yaml:"peak_above"`
	AvgAbove  float64         `mapstructure:"avg_above" yaml:"avg_above"`
}

// DefaultBands returns the standard strength bands, strongest first.
func DefaultBands() []Band {
	return []Band{
		{Label: domain.StrengthStrong, PeakAbove: 100, AvgAbove: 80},
		{Label: domain.StrengthModerate, PeakAbove: 40, AvgAbove: 30},
	}
}

// Options configures the classifier.
type Options struct {
	Bands              []Band
	Fallback           domain.Strength
	ClusterEnabled     bool
	ClusterMinDistance int // samples between retained peaks
	ClusterMinPeaks    int // peaks needed for Clustered
}

// DefaultOptions returns the standard classifier configuration.
func DefaultOptions() Options {
	return Options{
		Bands:              DefaultBands(),
		Fallback:           domain.StrengthWeak,
		ClusterEnabled:     true,
		ClusterMinDistance: 3,
		ClusterMinPeaks:    2,
	}
}

// Classification is the label set for one event.
type Classification struct {
	Strength   domain.Strength
	Confidence float64
	Type       domain.EventType
	PeakCount  int
}

// Classifier labels merged events.
type Classifier struct {
	opts Options
}

// New creates a new classifier.
func New(opts Options) *Classifier {
	return &Classifier{opts: opts}
}

// Classify labels g. scores is the window composite series that g's index span
// refers to; threshold and windowMax are the window-level values.
func (c *Classifier) Classify(g merge.Group, scores []float64, threshold, windowMax float64) Classification {
	out := Classification{
		Strength:   c.Strength(g.PeakScore, g.AvgScore),
		Confidence: Confidence(g.AvgScore, windowMax),
		Type:       domain.EventTypeSingle,
	}
	if !c.opts.ClusterEnabled {
		return out
	}
	out.PeakCount = len(c.Peaks(scores, g.FirstIndex, g.LastIndex, threshold))
	if out.PeakCount >= c.opts.ClusterMinPeaks {
		out.Type = domain.EventTypeClustered
	}
	return out
}

// Strength returns the label of the first matching band, or the fallback.
func (c *Classifier) Strength(peak, avg float64) domain.Strength {
	for _, b := range c.opts.Bands {
		if peak > b.PeakAbove || avg > b.AvgAbove {
			return b.Label
		}
	}
	return c.opts.Fallback
}

// Confidence returns round(100*avg/windowMax, 1) clamped to [0, 100], or 0
// when windowMax is not positive.
func Confidence(avg, windowMax float64) float64 {
	if windowMax <= 0 {
		return 0
	}
	v := stats.Round(100*avg/windowMax, 1)
	return math.Min(100, math.Max(0, v))
}

// Peaks returns the indices of local maxima in scores[first..last] higher than
// threshold, keeping the highest peaks at least ClusterMinDistance apart.
// A plateau yields its leftmost sample.
func (c *Classifier) Peaks(scores []float64, first, last int, threshold float64) []int {
	if first < 0 {
		first = 0
	}
	if last >= len(scores) {
		last = len(scores) - 1
	}

	var candidates []int
	for i := first; i <= last; i++ {
		v := scores[i]
		if v <= threshold {
			continue
		}
		left := math.Inf(-1)
		if i > 0 {
			left = scores[i-1]
		}
		right := math.Inf(-1)
		if i+1 < len(scores) {
			right = scores[i+1]
		}
		if v > left && v >= right {
			candidates = append(candidates, i)
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return scores[candidates[a]] > scores[candidates[b]]
	})

	kept := make([]int, 0, len(candidates))
	for _, idx := range candidates {
		tooClose := false
		for _, k := range kept {
			if abs(idx-k) < c.opts.ClusterMinDistance {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, idx)
		}
	}
	sort.Ints(kept)
	return kept
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
