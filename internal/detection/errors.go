package detection

import "errors"

// Diagnostic categories. None of them aborts a run.
var (
	// ErrMissingColumn indicates a weighted parameter absent from the series.
	ErrMissingColumn = errors.New("missing column")

	// ErrEmptyWindow indicates no samples in a window's search range.
	ErrEmptyWindow = errors.New("empty window")

	// ErrDegenerateVariance indicates a zero standard deviation. It is
	// substituted with epsilon by the baseline and never surfaced.
	ErrDegenerateVariance = errors.New("degenerate variance")

	// ErrEmptyPercentileInput indicates no valid values for a percentile; the
	// threshold falls back to the configured minimum.
	ErrEmptyPercentileInput = errors.New("empty percentile input")
)
