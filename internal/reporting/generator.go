package reporting

import (
	"context"
	"fmt"
	"time"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/stats"
	"halo-cme-lab/internal/storage"
)

// Generator produces reports from detection runs.
type Generator struct {
	runStore storage.RunStore // optional, for reports of stored runs
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. runStore may be nil when
// reports are only built from in-memory runs.
func NewGenerator(runStore storage.RunStore) *Generator {
	return &Generator{
		runStore: runStore,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads a stored run and builds its report.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	if g.runStore == nil {
		return nil, fmt.Errorf("no run store configured")
	}
	run, err := g.runStore.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	return g.Build(run), nil
}

// Build converts a detection run into a report. The data summary is filled
// from the run; series-level fields are left for the caller.
func (g *Generator) Build(run *domain.DetectionRun) *Report {
	r := &Report{
		GeneratedAt:    g.now(),
		RunID:          run.RunID,
		ConfigDigest:   run.ConfigDigest,
		Evaluation:     evaluationRow(run.Summary),
		Windows:        windowRows(run.Windows),
		Events:         EventRows(run.Events),
		FalseNegatives: FalseNegativeRows(run.FalseNegatives),
		SkippedWindows: append([]string(nil), run.SkippedWindows...),
	}

	r.DataSummary = DataSummary{
		CatalogWindows:   len(run.Windows),
		SkippedWindows:   len(run.SkippedWindows),
		ProcessedWindows: len(run.Windows) - len(run.SkippedWindows),
		EmittedEvents:    run.Summary.TP + run.Summary.FP,
		ReportedEvents:   len(run.Events),
	}

	for _, w := range run.Windows {
		for _, name := range w.MissingNames {
			r.DataQuality.Diagnostics = append(r.DataQuality.Diagnostics,
				fmt.Sprintf("window %s: missing parameter %s", w.WindowID, name))
		}
	}
	r.DataQuality.AllChecksPassed = true

	return r
}

func evaluationRow(v domain.ValidationResult) EvaluationRow {
	return EvaluationRow{
		Precision: v.Precision,
		Recall:    v.Recall,
		F1:        v.F1,
		TP:        v.TP,
		FP:        v.FP,
		FN:        v.FN,
	}
}

func windowRows(windows []domain.WindowSummary) []WindowRow {
	rows := make([]WindowRow, len(windows))
	for i, w := range windows {
		rows[i] = WindowRow{
			WindowID:    w.WindowID,
			SearchStart: w.Search.Start,
			SearchEnd:   w.Search.End,
			Samples:     w.SampleCount,
			Threshold:   w.Threshold,
			MaxScore:    w.MaxScore,
			Candidates:  w.Candidates,
			Merged:      w.Merged,
			Skipped:     w.Skipped,
			SkipReason:  w.SkipReason,
		}
	}
	return rows
}

// EventRows converts events into output rows, keeping their order.
func EventRows(events []*domain.MergedEvent) []EventRow {
	rows := make([]EventRow, len(events))
	for i, e := range events {
		rows[i] = EventRow{
			EventID:      e.EventID,
			WindowID:     e.WindowID,
			Start:        e.Start,
			End:          e.End,
			AvgScore:     stats.Round(e.AvgScore, 2),
			PeakScore:    stats.Round(e.PeakScore, 2),
			DurationMins: stats.Round(e.DurationMinutes(), 2),
			Confidence:   stats.Round(e.Confidence, 1),
			Strength:     e.Strength.String(),
			Type:         e.Type.String(),
			Validation:   e.Validation.String(),
			PeakCount:    e.PeakCount,
		}
	}
	return rows
}

// FalseNegativeRows converts false negatives into output rows.
func FalseNegativeRows(fns []domain.FalseNegative) []FalseNegativeRow {
	rows := make([]FalseNegativeRow, len(fns))
	for i, fn := range fns {
		rows[i] = FalseNegativeRow{
			WindowID:      fn.WindowID,
			ExpectedStart: fn.ExpectedStart,
			ExpectedEnd:   fn.ExpectedEnd,
			SearchStart:   fn.SearchStart,
			SearchEnd:     fn.SearchEnd,
			Reason:        fn.Reason.String(),
		}
	}
	return rows
}
