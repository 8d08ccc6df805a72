// Package segment extracts significant runs of high composite score.
package segment

import (
	"math"
	"time"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/stats"
)

// Options configures the significance filter.
type Options struct {
	NoiseFloor      float64       // absolute minimum average score
	NoiseFloorRatio float64       // threshold-relative minimum; 0 disables it
	MinDuration     time.Duration // minimum End - Start; 0 disables it
}

// Result is the outcome of extraction over one window.
type Result struct {
	Threshold float64
	MaxScore  float64
	Runs      int // runs above threshold before filtering
	Segments  []domain.CandidateSegment
}

// Extractor applies a threshold policy and the significance filter.
type Extractor struct {
	policy ThresholdPolicy
	opts   Options
}

// NewExtractor creates a new extractor.
func NewExtractor(policy ThresholdPolicy, opts Options) *Extractor {
	return &Extractor{policy: policy, opts: opts}
}

// NoiseFloor returns the minimum average score for a given threshold.
func (e *Extractor) NoiseFloor(threshold float64) float64 {
	return math.Max(e.opts.NoiseFloor, e.opts.NoiseFloorRatio*threshold)
}

// Extract segments scores (aligned with times) into candidate segments.
func (e *Extractor) Extract(times []time.Time, scores []float64) Result {
	res := Result{
		Threshold: e.policy.Threshold(scores),
		MaxScore:  stats.Max(scores),
	}
	floor := e.NoiseFloor(res.Threshold)

	for _, r := range Runs(scores, res.Threshold) {
		res.Runs++
		seg := build(times, scores, r)
		if seg.AvgScore < floor {
			continue
		}
		if seg.Duration < e.opts.MinDuration {
			continue
		}
		res.Segments = append(res.Segments, seg)
	}
	return res
}

// Run is an inclusive index range.
type Run struct {
	First int
	Last  int
}

// Runs returns the maximal runs of consecutive indices with score > threshold.
func Runs(scores []float64, threshold float64) []Run {
	var runs []Run
	start := -1
	for i, s := range scores {
		high := s > threshold
		switch {
		case high && start < 0:
			start = i
		case !high && start >= 0:
			runs = append(runs, Run{First: start, Last: i - 1})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, Run{First: start, Last: len(scores) - 1})
	}
	return runs
}

func build(times []time.Time, scores []float64, r Run) domain.CandidateSegment {
	members := scores[r.First : r.Last+1]
	peak := members[0]
	sum := 0.0
	for _, s := range members {
		sum += s
		if s > peak {
			peak = s
		}
	}
	start, end := times[r.First], times[r.Last]
	return domain.CandidateSegment{
		Start:      start,
		End:        end,
		AvgScore:   sum / float64(len(members)),
		PeakScore:  peak,
		Duration:   end.Sub(start),
		FirstIndex: r.First,
		LastIndex:  r.Last,
	}
}
