package reporting

import (
	"fmt"
	"strings"

	"halo-cme-lab/internal/domain"
)

// RenderEventsCSV renders detected_halo_cmes.csv. The id column is the catalog
// window the event was found in.
func RenderEventsCSV(rows []EventRow) string {
	var sb strings.Builder

	sb.WriteString("id,start,end,avg_score,peak_score,duration_mins,confidence,strength,type,validation\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.2f,%.2f,%.2f,%.1f%%,%s,%s,%s\n",
			r.WindowID,
			r.Start.Format(TimeLayout),
			r.End.Format(TimeLayout),
			r.AvgScore,
			r.PeakScore,
			r.DurationMins,
			r.Confidence,
			r.Strength,
			r.Type,
			r.Validation,
		))
	}

	return sb.String()
}

// RenderSummaryCSV renders evaluation_summary.csv.
func RenderSummaryCSV(e EvaluationRow) string {
	var sb strings.Builder
	sb.WriteString("precision,recall,f1,tp,fp,fn\n")
	sb.WriteString(fmt.Sprintf("%.4f,%.4f,%.4f,%d,%d,%d\n",
		e.Precision, e.Recall, e.F1, e.TP, e.FP, e.FN))
	return sb.String()
}

// RenderFalseNegativesCSV renders false_negatives.csv.
func RenderFalseNegativesCSV(rows []FalseNegativeRow) string {
	var sb strings.Builder

	sb.WriteString("id,expected_start,expected_end,search_window_start,search_window_end,reason\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s\n",
			r.WindowID,
			r.ExpectedStart.Format(TimeLayout),
			r.ExpectedEnd.Format(TimeLayout),
			r.SearchStart.Format(TimeLayout),
			r.SearchEnd.Format(TimeLayout),
			r.Reason,
		))
	}

	return sb.String()
}

// RenderScoresCSV renders a debug_scores/CME_<id>_scores.csv file.
func RenderScoresCSV(scores *domain.WindowScores) string {
	var sb strings.Builder
	sb.WriteString("Time,Composite_Score\n")
	for _, p := range scores.Points {
		sb.WriteString(fmt.Sprintf("%s,%.6f\n", p.Time.Format(TimeLayout), p.Score))
	}
	return sb.String()
}

// ScoresFileName returns the debug score file name for a window.
func ScoresFileName(windowID string) string {
	return fmt.Sprintf("CME_%s_scores.csv", windowID)
}
