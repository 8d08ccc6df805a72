package reporting

import "time"

// TimeLayout is the timestamp format used in every artifact.
const TimeLayout = "2006-01-02 15:04:05"

// Report represents the detection run report structure.
type Report struct {
	// Metadata
	GeneratedAt  time.Time
	RunID        string
	ConfigDigest string

	// Data Summary
	DataSummary DataSummary

	// Data Quality (input checks and per-window diagnostics)
	DataQuality DataQualitySection

	// Evaluation against the catalog
	Evaluation EvaluationRow

	// Per-window results (catalog order)
	Windows []WindowRow

	// Detected events after deduplication (catalog order, then start time)
	Events []EventRow

	// Catalog windows without a matching event (catalog order)
	FalseNegatives []FalseNegativeRow

	// Windows with no samples in their search range
	SkippedWindows []string

	// Reproducibility
	Reproducibility ReproducibilityMetadata
}

// DataSummary contains data description.
type DataSummary struct {
	Samples          int
	Parameters       []string
	SeriesStart      time.Time
	SeriesEnd        time.Time
	CatalogWindows   int
	ProcessedWindows int
	SkippedWindows   int
	EmittedEvents    int // before deduplication
	ReportedEvents   int // after deduplication
}

// DataQualitySection contains input checks and diagnostics.
type DataQualitySection struct {
	Checks          []QualityCheckRow
	Diagnostics     []string
	AllChecksPassed bool
}

// QualityCheckRow represents one input check.
type QualityCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// EvaluationRow holds validation counts and metrics.
type EvaluationRow struct {
	Precision float64
	Recall    float64
	F1        float64
	TP        int
	FP        int
	FN        int
}

// WindowRow represents one catalog window in the report.
type WindowRow struct {
	WindowID    string
	SearchStart time.Time
	SearchEnd   time.Time
	Samples     int
	Threshold   float64
	MaxScore    float64
	Candidates  int
	Merged      int
	Skipped     bool
	SkipReason  string
}

// EventRow represents one row of detected_halo_cmes.csv.
// Scores and duration are rounded to 2 decimals, confidence to 1.
type EventRow struct {
	EventID      string
	WindowID     string
	Start        time.Time
	End          time.Time
	AvgScore     float64
	PeakScore    float64
	DurationMins float64
	Confidence   float64
	Strength     string
	Type         string
	Validation   string
	PeakCount    int
}

// FalseNegativeRow represents one row of false_negatives.csv.
type FalseNegativeRow struct {
	WindowID      string
	ExpectedStart time.Time
	ExpectedEnd   time.Time
	SearchStart   time.Time
	SearchEnd     time.Time
	Reason        string
}

// ReproducibilityMetadata contains metadata for reproducing a run.
type ReproducibilityMetadata struct {
	GeneratorVersion string
	InputDigest      string
	CommitHash       string
	ReplayCommand    string
}
