// Package validation labels detected events against the catalog and computes
// precision, recall and F1.
package validation

import (
	"time"

	"halo-cme-lab/internal/domain"
)

// Label returns TP if the event overlaps the expected interval (inclusive), else FP.
func Label(event, expected domain.TimeWindow) domain.Validation {
	if event.Overlaps(expected) {
		return domain.ValidationTP
	}
	return domain.ValidationFP
}

// Evaluate tallies TP/FP over every emitted event and collects one
// FalseNegative for each catalog window that no event overlaps. skipped holds
// the IDs of windows that had no samples in their search range.
func Evaluate(
	events []*domain.MergedEvent,
	catalog []*domain.ExpectedWindow,
	skipped map[string]bool,
	margin time.Duration,
) (domain.ValidationResult, []domain.FalseNegative) {
	var res domain.ValidationResult
	for _, e := range events {
		switch e.Validation {
		case domain.ValidationTP:
			res.TP++
		case domain.ValidationFP:
			res.FP++
		}
	}

	var fns []domain.FalseNegative
	for _, w := range catalog {
		expected := w.Expected()
		if anyOverlap(events, expected) {
			continue
		}
		search := w.SearchWindow(margin)
		reason := domain.ReasonNoOverlap
		if skipped[w.ID] {
			reason = domain.ReasonEmptyWindow
		}
		fns = append(fns, domain.FalseNegative{
			WindowID:      w.ID,
			ExpectedStart: w.ExpectedStart,
			ExpectedEnd:   w.ExpectedEnd,
			SearchStart:   search.Start,
			SearchEnd:     search.End,
			Reason:        reason,
		})
	}
	res.FN = len(fns)

	return Metrics(res.TP, res.FP, res.FN), fns
}

// Metrics computes precision, recall and F1 from confusion counts. Zero
// denominators yield 0.
func Metrics(tp, fp, fn int) domain.ValidationResult {
	res := domain.ValidationResult{TP: tp, FP: fp, FN: fn}
	if tp+fp > 0 {
		res.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		res.Recall = float64(tp) / float64(tp+fn)
	}
	if res.Precision+res.Recall > 0 {
		res.F1 = 2 * res.Precision * res.Recall / (res.Precision + res.Recall)
	}
	return res
}

// Dedup drops events whose (Start, End) pair was already seen, keeping the
// first occurrence.
func Dedup(events []*domain.MergedEvent) []*domain.MergedEvent {
	type key struct {
		start, end int64
	}
	seen := make(map[key]struct{}, len(events))
	out := make([]*domain.MergedEvent, 0, len(events))
	for _, e := range events {
		k := key{start: e.Start.UnixNano(), end: e.End.UnixNano()}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

func anyOverlap(events []*domain.MergedEvent, w domain.TimeWindow) bool {
	for _, e := range events {
		if e.Window().Overlaps(w) {
			return true
		}
	}
	return false
}
