// Package detection runs the per-window detection chain: score, segment,
// merge, classify and label.
package detection

import (
	"fmt"
	"time"

	"halo-cme-lab/internal/baseline"
	"halo-cme-lab/internal/classify"
	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/idhash"
	"halo-cme-lab/internal/merge"
	"halo-cme-lab/internal/scoring"
	"halo-cme-lab/internal/segment"
	"halo-cme-lab/internal/validation"
)

// DefaultMargin widens each expected window on both sides.
const DefaultMargin = 48 * time.Hour

// Options holds the window-level constants.
type Options struct {
	Margin   time.Duration
	MergeGap time.Duration
}

// WindowResult is everything one catalog window produced.
type WindowResult struct {
	Window      *domain.ExpectedWindow
	Summary     domain.WindowSummary
	Scores      *domain.WindowScores // nil when the window was skipped
	Events      []*domain.MergedEvent
	Diagnostics []error
}

// Detector processes one expected window at a time. It holds no mutable state
// and is safe for concurrent use.
type Detector struct {
	engine     *scoring.Engine
	extractor  *segment.Extractor
	classifier *classify.Classifier
	opts       Options
}

// NewDetector creates a new detector.
func NewDetector(engine *scoring.Engine, extractor *segment.Extractor, classifier *classify.Classifier, opts Options) *Detector {
	return &Detector{engine: engine, extractor: extractor, classifier: classifier, opts: opts}
}

// Params returns the parameters the scoring engine needs a baseline for.
func (d *Detector) Params() []string {
	return d.engine.Params()
}

// Margin returns the search margin.
func (d *Detector) Margin() time.Duration {
	return d.opts.Margin
}

// Detect runs the chain over w's search window. b must be computed over series.
func (d *Detector) Detect(series *domain.Series, b *baseline.Baseline, w *domain.ExpectedWindow) *WindowResult {
	search := w.SearchWindow(d.opts.Margin)
	res := &WindowResult{
		Window:  w,
		Summary: domain.WindowSummary{WindowID: w.ID, Search: search},
	}

	lo, hi := series.IndexRange(search)
	res.Summary.SampleCount = hi - lo
	if hi == lo {
		res.Summary.Skipped = true
		res.Summary.SkipReason = string(domain.ReasonEmptyWindow)
		res.Diagnostics = append(res.Diagnostics, fmt.Errorf("window %s: %w", w.ID, ErrEmptyWindow))
		return res
	}

	scored := d.engine.Score(series, b, lo, hi)
	res.Summary.MissingNames = scored.Missing
	for _, name := range scored.Missing {
		res.Diagnostics = append(res.Diagnostics, fmt.Errorf("window %s: %w: %s", w.ID, ErrMissingColumn, name))
	}
	for _, p := range scored.Parameters {
		if p.EmptyInput {
			res.Diagnostics = append(res.Diagnostics, fmt.Errorf("window %s: %w: %s", w.ID, ErrEmptyPercentileInput, p.Name))
		}
	}

	extracted := d.extractor.Extract(scored.Times, scored.Composite)
	res.Summary.Threshold = extracted.Threshold
	res.Summary.MaxScore = extracted.MaxScore
	res.Summary.Candidates = len(extracted.Segments)
	res.Scores = &domain.WindowScores{
		WindowID:  w.ID,
		Threshold: extracted.Threshold,
		MaxScore:  extracted.MaxScore,
		Points:    scored.Points(),
	}

	groups := merge.Merge(extracted.Segments, d.opts.MergeGap)
	res.Summary.Merged = len(groups)
	expected := w.Expected()
	for _, g := range groups {
		c := d.classifier.Classify(g, scored.Composite, extracted.Threshold, extracted.MaxScore)
		ev := &domain.MergedEvent{
			EventID:    idhash.ComputeEventID(w.ID, g.Start, g.End),
			WindowID:   w.ID,
			Start:      g.Start,
			End:        g.End,
			AvgScore:   g.AvgScore,
			PeakScore:  g.PeakScore,
			Duration:   g.Duration,
			Confidence: c.Confidence,
			Strength:   c.Strength,
			Type:       c.Type,
			PeakCount:  c.PeakCount,
			FirstIndex: g.FirstIndex,
			LastIndex:  g.LastIndex,
		}
		ev.Validation = validation.Label(ev.Window(), expected)
		res.Events = append(res.Events, ev)
	}

	return res
}
