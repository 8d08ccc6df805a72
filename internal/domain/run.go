package domain

import "time"

// WindowSummary records what happened while processing one catalog window.
type WindowSummary struct {
	WindowID     string
	Search       TimeWindow
	SampleCount  int
	Threshold    float64
	MaxScore     float64
	Candidates   int // segments surviving the significance filter
	Merged       int // events after merging
	Skipped      bool
	SkipReason   string
	MissingNames []string // weighted parameters absent from the series
}

// DetectionRun is the full result of one detection run.
type DetectionRun struct {
	RunID          string
	CreatedAt      time.Time
	ConfigDigest   string
	Windows        []WindowSummary
	SkippedWindows []string
	Events         []*MergedEvent // deduplicated output table
	FalseNegatives []FalseNegative
	Summary        ValidationResult
}
