package reporting

import (
	"fmt"
	"strings"
)

// RenderMetricsText renders evaluation_metrics.txt.
func RenderMetricsText(e EvaluationRow) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Precision: %.2f\n", e.Precision))
	sb.WriteString(fmt.Sprintf("Recall: %.2f\n", e.Recall))
	sb.WriteString(fmt.Sprintf("F1 Score: %.2f\n", e.F1))
	sb.WriteString(fmt.Sprintf("True Positives: %d\n", e.TP))
	sb.WriteString(fmt.Sprintf("False Positives: %d\n", e.FP))
	sb.WriteString(fmt.Sprintf("False Negatives: %d\n", e.FN))
	return sb.String()
}
