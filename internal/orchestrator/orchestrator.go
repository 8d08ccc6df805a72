// Package orchestrator runs detection across the whole catalog.
// It coordinates: baseline → per-window detection (parallel) → validation → dedup
package orchestrator

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"halo-cme-lab/internal/baseline"
	"halo-cme-lab/internal/detection"
	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/observability"
	"halo-cme-lab/internal/validation"
)

// Orchestrator coordinates a detection run.
// Flow: baseline once → one worker per catalog window → ordered reduction
type Orchestrator struct {
	detector     *detection.Detector
	baselineOpts baseline.Options
	workers      int
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Detector *detection.Detector
	Baseline baseline.Options

	// Optional
	Workers int // defaults to runtime.NumCPU()
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		detector:     opts.Detector,
		baselineOpts: opts.Baseline,
		workers:      workers,
		logger:       logger.With(zap.String("component", "orchestrator")),
		metrics:      opts.Metrics,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Windows        []*detection.WindowResult // catalog order
	Emitted        []*domain.MergedEvent     // every event, before dedup
	Events         []*domain.MergedEvent     // output table, deduplicated
	FalseNegatives []domain.FalseNegative
	Skipped        []string
	Summary        domain.ValidationResult
}

// Run executes detection for every catalog window.
// Phases:
//  1. Compute the baseline over the full series
//  2. Detect per window in parallel, each worker writing its own slot
//  3. Reduce in catalog order, validate, deduplicate
func (o *Orchestrator) Run(ctx context.Context, series *domain.Series, catalog []*domain.ExpectedWindow) (*RunResult, error) {
	if o.detector == nil {
		return nil, fmt.Errorf("orchestrator: detector is required")
	}

	// Phase 1: Baseline
	started := time.Now()
	b := baseline.Compute(series, o.detector.Params(), o.baselineOpts)
	o.logger.Debug("baseline computed",
		zap.Int("samples", series.Len()),
		zap.Int("parameters", len(b.Local)),
		zap.Bool("daily", b.Global != nil),
		zap.Duration("elapsed", time.Since(started)),
	)

	// Phase 2: Per-window detection
	results := make([]*detection.WindowResult, len(catalog))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, w := range catalog {
		i, w := i, w
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			windowStart := time.Now()
			res := o.detector.Detect(series, b, w)
			o.metrics.RecordWindow(res.Summary, time.Since(windowStart))
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("detect windows: %w", err)
	}

	// Phase 3: Reduction
	out := &RunResult{Windows: results}
	skipped := make(map[string]bool)
	for _, res := range results {
		o.logWindow(res)
		if res.Summary.Skipped {
			skipped[res.Window.ID] = true
			out.Skipped = append(out.Skipped, res.Window.ID)
			continue
		}
		out.Emitted = append(out.Emitted, res.Events...)
	}

	out.Summary, out.FalseNegatives = validation.Evaluate(out.Emitted, catalog, skipped, o.detector.Margin())
	out.Events = validation.Dedup(out.Emitted)

	o.logger.Info("detection completed",
		zap.Int("windows", len(catalog)),
		zap.Int("skipped", len(out.Skipped)),
		zap.Int("events", len(out.Events)),
		zap.Int("tp", out.Summary.TP),
		zap.Int("fp", out.Summary.FP),
		zap.Int("fn", out.Summary.FN),
		zap.Float64("precision", out.Summary.Precision),
		zap.Float64("recall", out.Summary.Recall),
		zap.Float64("f1", out.Summary.F1),
	)

	return out, nil
}

func (o *Orchestrator) logWindow(res *detection.WindowResult) {
	for _, diag := range res.Diagnostics {
		o.logger.Warn("window diagnostic", zap.String("window_id", res.Window.ID), zap.Error(diag))
	}
	if res.Summary.Skipped {
		return
	}
	o.logger.Debug("window processed",
		zap.String("window_id", res.Window.ID),
		zap.Int("samples", res.Summary.SampleCount),
		zap.Float64("threshold", res.Summary.Threshold),
		zap.Float64("max_score", res.Summary.MaxScore),
		zap.Int("candidates", res.Summary.Candidates),
		zap.Int("merged", res.Summary.Merged),
	)
}
