package domain

import "time"

// Strength is the intensity band of a detected event.
type Strength string

const (
	StrengthStrong   Strength = "Strong"
	StrengthModerate Strength = "Moderate"
	StrengthWeak     Strength = "Weak"
)

// String returns the string representation of Strength.
func (s Strength) String() string {
	return string(s)
}

// EventType distinguishes single-peaked events from multi-peaked ones.
type EventType string

const (
	EventTypeSingle    EventType = "Single"
	EventTypeClustered EventType = "Clustered"
)

// String returns the string representation of EventType.
func (t EventType) String() string {
	return string(t)
}

// IsValid checks if the event type is a valid value.
func (t EventType) IsValid() bool {
	return t == EventTypeSingle || t == EventTypeClustered
}

// Validation is the label assigned against the catalog.
type Validation string

const (
	ValidationTP Validation = "TP"
	ValidationFP Validation = "FP"
)

// String returns the string representation of Validation.
func (v Validation) String() string {
	return string(v)
}

// IsValid checks if the validation label is a valid value.
func (v Validation) IsValid() bool {
	return v == ValidationTP || v == ValidationFP
}

// CandidateSegment is a maximal run of consecutive samples whose composite
// score exceeds the window threshold.
type CandidateSegment struct {
	Start      time.Time
	End        time.Time
	AvgScore   float64
	PeakScore  float64
	Duration   time.Duration // End - Start
	FirstIndex int           // first row of the run, relative to the window
	LastIndex  int           // last row of the run, inclusive
}

// Window returns the segment's time span.
func (c *CandidateSegment) Window() TimeWindow {
	return TimeWindow{Start: c.Start, End: c.End}
}

// MergedEvent is one detected event after merging and classification.
type MergedEvent struct {
	EventID    string
	WindowID   string // ExpectedWindow.ID the event was found in
	Start      time.Time
	End        time.Time
	AvgScore   float64       // max of member averages
	PeakScore  float64       // max of member peaks
	Duration   time.Duration // sum of member durations
	Confidence float64       // percent, [0, 100]
	Strength   Strength
	Type       EventType
	Validation Validation
	PeakCount  int // peaks found by the cluster detector

	FirstIndex int // window-relative row span of the merged members
	LastIndex  int
}

// Window returns the event's time span.
func (e *MergedEvent) Window() TimeWindow {
	return TimeWindow{Start: e.Start, End: e.End}
}

// DurationMinutes returns the accumulated duration in minutes.
func (e *MergedEvent) DurationMinutes() float64 {
	return e.Duration.Minutes()
}
