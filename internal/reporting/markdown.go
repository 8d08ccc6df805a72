package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Halo CME Detection Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s` | Config: `%s`\n\n", r.RunID, shortDigest(r.ConfigDigest)))

	// Evaluation
	sb.WriteString("## Evaluation\n\n")
	sb.WriteString("| Precision | Recall | F1 | TP | FP | FN |\n")
	sb.WriteString("|-----------|--------|----|----|----|----|\n")
	sb.WriteString(fmt.Sprintf("| %.2f | %.2f | %.2f | %d | %d | %d |\n\n",
		r.Evaluation.Precision, r.Evaluation.Recall, r.Evaluation.F1,
		r.Evaluation.TP, r.Evaluation.FP, r.Evaluation.FN))

	// Data Summary
	d := r.DataSummary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Samples | %d |\n", d.Samples))
	if !d.SeriesStart.IsZero() {
		sb.WriteString(fmt.Sprintf("| Series Start | %s |\n", d.SeriesStart.Format(TimeLayout)))
		sb.WriteString(fmt.Sprintf("| Series End | %s |\n", d.SeriesEnd.Format(TimeLayout)))
	}
	if len(d.Parameters) > 0 {
		sb.WriteString(fmt.Sprintf("| Parameters | %s |\n", strings.Join(d.Parameters, ", ")))
	}
	sb.WriteString(fmt.Sprintf("| Catalog Windows | %d |\n", d.CatalogWindows))
	sb.WriteString(fmt.Sprintf("| Processed Windows | %d |\n", d.ProcessedWindows))
	sb.WriteString(fmt.Sprintf("| Skipped Windows | %d |\n", d.SkippedWindows))
	sb.WriteString(fmt.Sprintf("| Emitted Events | %d |\n", d.EmittedEvents))
	sb.WriteString(fmt.Sprintf("| Reported Events | %d |\n", d.ReportedEvents))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.Checks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.Checks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")
	} else if len(r.DataQuality.Diagnostics) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	if len(r.DataQuality.Diagnostics) > 0 {
		sb.WriteString("### Diagnostics\n\n")
		for _, diag := range r.DataQuality.Diagnostics {
			sb.WriteString(fmt.Sprintf("- %s\n", diag))
		}
		sb.WriteString("\n")
	}

	// Windows
	sb.WriteString("## Windows\n\n")
	if len(r.Windows) > 0 {
		sb.WriteString("| Window | Search Start | Search End | Samples | Threshold | Max Score | Candidates | Merged | Status |\n")
		sb.WriteString("|--------|--------------|------------|---------|-----------|-----------|------------|--------|--------|\n")
		for _, w := range r.Windows {
			status := "processed"
			if w.Skipped {
				status = "skipped (" + w.SkipReason + ")"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %.4f | %.4f | %d | %d | %s |\n",
				w.WindowID, w.SearchStart.Format(TimeLayout), w.SearchEnd.Format(TimeLayout),
				w.Samples, w.Threshold, w.MaxScore, w.Candidates, w.Merged, status))
		}
	} else {
		sb.WriteString("No catalog windows.\n")
	}
	sb.WriteString("\n")

	// Events
	sb.WriteString("## Detected Events\n\n")
	if len(r.Events) > 0 {
		sb.WriteString("| Window | Start | End | Avg | Peak | Duration (min) | Confidence | Strength | Type | Validation |\n")
		sb.WriteString("|--------|-------|-----|-----|------|----------------|------------|----------|------|------------|\n")
		for _, e := range r.Events {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f | %.2f | %.2f | %.1f%% | %s | %s | %s |\n",
				e.WindowID, e.Start.Format(TimeLayout), e.End.Format(TimeLayout),
				e.AvgScore, e.PeakScore, e.DurationMins, e.Confidence,
				e.Strength, e.Type, e.Validation))
		}
	} else {
		sb.WriteString("No events detected.\n")
	}
	sb.WriteString("\n")

	// False Negatives
	sb.WriteString("## False Negatives\n\n")
	if len(r.FalseNegatives) > 0 {
		sb.WriteString("| Window | Expected Start | Expected End | Reason |\n")
		sb.WriteString("|--------|----------------|--------------|--------|\n")
		for _, fn := range r.FalseNegatives {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				fn.WindowID, fn.ExpectedStart.Format(TimeLayout), fn.ExpectedEnd.Format(TimeLayout), fn.Reason))
		}
	} else {
		sb.WriteString("Every catalog window has a matching event.\n")
	}
	sb.WriteString("\n")

	// Skipped
	if len(r.SkippedWindows) > 0 {
		sb.WriteString("## Skipped Windows\n\n")
		sb.WriteString(strings.Join(r.SkippedWindows, ", "))
		sb.WriteString("\n\n")
	}

	// Reproducibility
	rep := r.Reproducibility
	if rep.GeneratorVersion != "" || rep.ReplayCommand != "" {
		sb.WriteString("## Reproducibility\n\n")
		sb.WriteString("| Field | Value |\n")
		sb.WriteString("|-------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Generator Version | %s |\n", rep.GeneratorVersion))
		sb.WriteString(fmt.Sprintf("| Config Digest | %s |\n", r.ConfigDigest))
		sb.WriteString(fmt.Sprintf("| Input Digest | %s |\n", rep.InputDigest))
		sb.WriteString(fmt.Sprintf("| Commit | %s |\n", rep.CommitHash))
		sb.WriteString(fmt.Sprintf("| Replay Command | `%s` |\n", rep.ReplayCommand))
		sb.WriteString("\n")
	}

	return sb.String()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
