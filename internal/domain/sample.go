package domain

import (
	"math"
	"time"
)

// MissingSentinel is the fill value used by the instrument archives for absent data.
const MissingSentinel = -1e31

// sentinelMagnitude is the smallest magnitude treated as a fill value.
const sentinelMagnitude = 1e30

// ParameterSample is one row of the solar-wind time series.
// Missing values are stored as NaN.
type ParameterSample struct {
	Time   time.Time          // observation timestamp (UTC)
	Values map[string]float64 // parameter name -> value, NaN if missing
}

// Missing returns the in-memory representation of a missing value.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v represents a missing value.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// NormalizeValue maps fill values (the -1e31 sentinel and anything of comparable
// magnitude) and infinities to missing. Other values are returned unchanged.
func NormalizeValue(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= sentinelMagnitude {
		return math.NaN()
	}
	return v
}

// ScorePoint is one timestamp of a composite score series.
type ScorePoint struct {
	Time  time.Time
	Score float64
}

// WindowScores is the composite score series of one expected window.
// Persisted as a debug artifact keyed by WindowID.
type WindowScores struct {
	WindowID  string
	Threshold float64 // window-level segmentation threshold
	MaxScore  float64 // max composite score within the window
	Points    []ScorePoint
}
