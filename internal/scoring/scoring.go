// Package scoring turns baseline-normalized parameter values into a weighted
// composite anomaly score per timestamp.
package scoring

import (
	"errors"
	"math"
	"time"

	"halo-cme-lab/internal/baseline"
	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/stats"
)

// ParameterWeight is one row of the declarative weight table.
type ParameterWeight struct {
	Name   string  `mapstructure:"name" yaml:"name"`
	Weight float64 `mapstructure:"weight" yaml:"weight"`
}

// DefaultWeights is the weight table used when none is configured.
func DefaultWeights() []ParameterWeight {
	return []ParameterWeight{
		{Name: "proton_bulk_speed", Weight: 1.0},
		{Name: "proton_density", Weight: 1.0},
		{Name: "composite_flux", Weight: 1.0},
		{Name: "proton_thermal", Weight: 0.5},
		{Name: "proton_xvelocity", Weight: 0.5},
		{Name: "proton_yvelocity", Weight: 0.5},
		{Name: "proton_zvelocity", Weight: 0.5},
		{Name: "alpha_proton_ratio", Weight: 0.7},
		{Name: "velocity_magnitude", Weight: 0.7},
	}
}

// Options configures the engine.
type Options struct {
	Weights      []ParameterWeight
	ZCap         float64 // upper clip for z; <= 0 disables it
	Percentile   float64 // per-parameter adaptive threshold percentile, [0, 100]
	MinThreshold float64 // floor for the adaptive threshold
	GlobalBlend  float64 // share of the daily z in the combined score
}

// DefaultOptions returns the standard scoring configuration.
func DefaultOptions() Options {
	return Options{
		Weights:      DefaultWeights(),
		ZCap:         10,
		Percentile:   90,
		MinThreshold: 2.0,
		GlobalBlend:  0.5,
	}
}

// ParameterScore describes how one parameter contributed to a window.
type ParameterScore struct {
	Name          string
	Weight        float64
	Threshold     float64
	EmptyInput    bool // no valid z values; threshold fell back to MinThreshold
	Contributions []float64
}

// Result is the composite score of one window.
type Result struct {
	Times      []time.Time
	Composite  []float64
	Parameters []ParameterScore
	Missing    []string // weighted parameters absent from the series
}

// Points returns the composite series as ScorePoints.
func (r *Result) Points() []domain.ScorePoint {
	out := make([]domain.ScorePoint, len(r.Times))
	for i, t := range r.Times {
		out[i] = domain.ScorePoint{Time: t, Score: r.Composite[i]}
	}
	return out
}

// Engine computes composite scores against a precomputed baseline.
type Engine struct {
	opts Options
}

// NewEngine creates a new scoring engine.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Params returns the names of parameters with a positive weight, in table order.
func (e *Engine) Params() []string {
	out := make([]string, 0, len(e.opts.Weights))
	for _, w := range e.opts.Weights {
		if w.Weight > 0 {
			out = append(out, w.Name)
		}
	}
	return out
}

// Score computes the composite score for the rows [lo, hi) of series.
// The baseline must have been computed over the same series.
func (e *Engine) Score(series *domain.Series, b *baseline.Baseline, lo, hi int) *Result {
	n := hi - lo
	res := &Result{
		Times:     series.Times()[lo:hi:hi],
		Composite: make([]float64, n),
	}

	for _, pw := range e.opts.Weights {
		if pw.Weight <= 0 {
			continue
		}
		col, ok := series.Column(pw.Name)
		local, hasLocal := b.Local[pw.Name]
		if !ok || !hasLocal {
			res.Missing = append(res.Missing, pw.Name)
			continue
		}

		var global *baseline.Stats
		if b.Global != nil {
			if g, ok := b.Global[pw.Name]; ok {
				gs := g.Slice(lo, hi)
				global = &gs
			}
		}

		z := e.zScores(col[lo:hi], local.Slice(lo, hi), global)
		threshold, err := e.threshold(z)
		ps := ParameterScore{
			Name:          pw.Name,
			Weight:        pw.Weight,
			Threshold:     threshold,
			EmptyInput:    errors.Is(err, stats.ErrNoValues),
			Contributions: make([]float64, n),
		}
		for i, v := range z {
			if math.IsNaN(v) || v <= threshold {
				continue
			}
			c := pw.Weight * v
			ps.Contributions[i] = c
			res.Composite[i] += c
		}
		res.Parameters = append(res.Parameters, ps)
	}

	return res
}

// zScores returns clipped, optionally blended z-scores. Missing inputs give NaN.
func (e *Engine) zScores(values []float64, local baseline.Stats, global *baseline.Stats) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		z := zScore(v, local.Mean[i], local.Std[i])
		if global != nil {
			if gz := zScore(v, global.Mean[i], global.Std[i]); !math.IsNaN(gz) && !math.IsNaN(z) {
				z = (1-e.opts.GlobalBlend)*z + e.opts.GlobalBlend*gz
			}
		}
		out[i] = e.clip(z)
	}
	return out
}

func (e *Engine) clip(z float64) float64 {
	if math.IsNaN(z) {
		return z
	}
	if z < 0 {
		return 0
	}
	if e.opts.ZCap > 0 && z > e.opts.ZCap {
		return e.opts.ZCap
	}
	return z
}

// threshold returns max(MinThreshold, percentile of valid z). With no valid
// values it returns MinThreshold and stats.ErrNoValues.
func (e *Engine) threshold(z []float64) (float64, error) {
	p, err := stats.Percentile(z, e.opts.Percentile)
	if err != nil {
		return e.opts.MinThreshold, err
	}
	return math.Max(e.opts.MinThreshold, p), nil
}

func zScore(v, mean, std float64) float64 {
	if math.IsNaN(v) || math.IsNaN(mean) || math.IsNaN(std) {
		return math.NaN()
	}
	return (v - mean) / std
}
