package domain

import "time"

// FalseNegativeReason explains why a catalog window has no matching event.
type FalseNegativeReason string

const (
	ReasonNoOverlap   FalseNegativeReason = "no_overlap"
	ReasonEmptyWindow FalseNegativeReason = "empty_window"
)

// String returns the string representation of FalseNegativeReason.
func (r FalseNegativeReason) String() string {
	return string(r)
}

// FalseNegative is a catalog window that no emitted event overlaps.
type FalseNegative struct {
	WindowID      string
	ExpectedStart time.Time
	ExpectedEnd   time.Time
	SearchStart   time.Time
	SearchEnd     time.Time
	Reason        FalseNegativeReason
}

// ValidationResult holds the confusion counts and derived metrics.
type ValidationResult struct {
	TP        int
	FP        int
	FN        int
	Precision float64
	Recall    float64
	F1        float64
}
