package segment

import (
	"fmt"
	"math"

	"halo-cme-lab/internal/stats"
)

// Policy names accepted by NewPolicy.
const (
	PolicyPercentile        = "percentile"
	PolicyNonzeroCorrective = "nonzero_corrective"
)

// ThresholdPolicy derives the window-level segmentation threshold from a
// composite score series.
type ThresholdPolicy interface {
	Name() string
	Threshold(scores []float64) float64
}

// PolicyOptions holds the constants shared by the threshold policies.
type PolicyOptions struct {
	Percentile        float64 // [0, 100]
	MinThreshold      float64
	CorrectionTrigger float64 // fraction of the window max above which the threshold is lowered
	CorrectionFactor  float64 // fraction of the window max used as the lowered threshold
}

// NewPolicy returns the policy registered under name.
func NewPolicy(name string, opts PolicyOptions) (ThresholdPolicy, error) {
	switch name {
	case PolicyPercentile:
		return &PercentilePolicy{opts: opts}, nil
	case PolicyNonzeroCorrective, "":
		return &NonzeroCorrectivePolicy{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown threshold policy %q", name)
	}
}

// PercentilePolicy takes the percentile of the full score distribution,
// floored at MinThreshold.
type PercentilePolicy struct {
	opts PolicyOptions
}

// Name implements ThresholdPolicy.
func (p *PercentilePolicy) Name() string { return PolicyPercentile }

// Threshold implements ThresholdPolicy.
func (p *PercentilePolicy) Threshold(scores []float64) float64 {
	v, err := stats.Percentile(scores, p.opts.Percentile)
	if err != nil {
		return p.opts.MinThreshold
	}
	return math.Max(p.opts.MinThreshold, v)
}

// NonzeroCorrectivePolicy takes the percentile of the nonzero scores. When that
// value sits above CorrectionTrigger*max it is lowered to
// max(MinThreshold, CorrectionFactor*max). No nonzero scores gives MinThreshold.
type NonzeroCorrectivePolicy struct {
	opts PolicyOptions
}

// Name implements ThresholdPolicy.
func (p *NonzeroCorrectivePolicy) Name() string { return PolicyNonzeroCorrective }

// Threshold implements ThresholdPolicy.
func (p *NonzeroCorrectivePolicy) Threshold(scores []float64) float64 {
	nonzero := make([]float64, 0, len(scores))
	for _, s := range scores {
		if s > 0 {
			nonzero = append(nonzero, s)
		}
	}
	v, err := stats.Percentile(nonzero, p.opts.Percentile)
	if err != nil {
		return p.opts.MinThreshold
	}
	maxScore := stats.Max(scores)
	if v > p.opts.CorrectionTrigger*maxScore {
		return math.Max(p.opts.MinThreshold, p.opts.CorrectionFactor*maxScore)
	}
	return v
}
