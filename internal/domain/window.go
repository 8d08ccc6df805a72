package domain

import "time"

// TimeWindow is a closed interval [Start, End].
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two closed intervals share at least one instant.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return !w.End.Before(other.Start) && !w.Start.After(other.End)
}

// Contains reports whether t lies within the window (inclusive).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Expand widens the window by pre before Start and post after End.
func (w TimeWindow) Expand(pre, post time.Duration) TimeWindow {
	return TimeWindow{Start: w.Start.Add(-pre), End: w.End.Add(post)}
}

// ExpectedWindow is one catalog record: the predicted arrival interval of a CME.
// ExpectedStart/ExpectedEnd are computed upstream and treated as opaque search bounds.
type ExpectedWindow struct {
	ID            string    // catalog identifier (CME number)
	LaunchTime    time.Time // first coronagraph appearance
	Speed         float64   // projected speed (km/s)
	HaloFlag      string    // halo classification code (II, III, IV)
	ExpectedStart time.Time // estimated arrival - buffer
	ExpectedEnd   time.Time // estimated arrival + buffer
}

// Expected returns the expected arrival interval.
func (e *ExpectedWindow) Expected() TimeWindow {
	return TimeWindow{Start: e.ExpectedStart, End: e.ExpectedEnd}
}

// SearchWindow returns the expected interval widened by margin on both sides.
func (e *ExpectedWindow) SearchWindow(margin time.Duration) TimeWindow {
	return e.Expected().Expand(margin, margin)
}
