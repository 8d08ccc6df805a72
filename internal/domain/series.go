package domain

import (
	"math"
	"sort"
	"time"
)

// Series is a columnar, time-ordered view of ParameterSamples.
// Rows sharing a timestamp keep their input order.
type Series struct {
	times   []time.Time
	columns map[string][]float64
	names   []string
}

// NewSeries builds a Series from samples. Samples are stable-sorted by time;
// a parameter absent from a row is missing in that row. Values are normalized
// with NormalizeValue.
func NewSeries(samples []*ParameterSample) *Series {
	sorted := make([]*ParameterSample, 0, len(samples))
	for _, s := range samples {
		if s != nil {
			sorted = append(sorted, s)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	nameSet := make(map[string]struct{})
	for _, s := range sorted {
		for name := range s.Values {
			nameSet[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(nameSet))
	for name := range nameSet {
		names = append(names, name)
	}
	sort.Strings(names)

	n := len(sorted)
	times := make([]time.Time, n)
	columns := make(map[string][]float64, len(names))
	for _, name := range names {
		col := make([]float64, n)
		for i := range col {
			col[i] = math.NaN()
		}
		columns[name] = col
	}

	for i, s := range sorted {
		times[i] = s.Time.UTC()
		for name, v := range s.Values {
			columns[name][i] = NormalizeValue(v)
		}
	}

	return &Series{times: times, columns: columns, names: names}
}

// Len returns the number of rows.
func (s *Series) Len() int {
	return len(s.times)
}

// Times returns the time axis. Callers must not modify it.
func (s *Series) Times() []time.Time {
	return s.times
}

// Parameters returns the parameter names present in the series, sorted.
func (s *Series) Parameters() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Has reports whether the parameter is present.
func (s *Series) Has(name string) bool {
	_, ok := s.columns[name]
	return ok
}

// Column returns the values of a parameter. Callers must not modify it.
func (s *Series) Column(name string) ([]float64, bool) {
	col, ok := s.columns[name]
	return col, ok
}

// IndexRange returns the half-open row range [lo, hi) whose timestamps fall
// inside w (inclusive bounds). lo == hi means no rows.
func (s *Series) IndexRange(w TimeWindow) (lo, hi int) {
	lo = sort.Search(len(s.times), func(i int) bool {
		return !s.times[i].Before(w.Start)
	})
	hi = sort.Search(len(s.times), func(i int) bool {
		return s.times[i].After(w.End)
	})
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Span returns the covered time range. ok is false for an empty series.
func (s *Series) Span() (TimeWindow, bool) {
	if len(s.times) == 0 {
		return TimeWindow{}, false
	}
	return TimeWindow{Start: s.times[0], End: s.times[len(s.times)-1]}, true
}

// Slice returns the rows [lo, hi) as a new Series. Column slices share storage
// with the receiver.
func (s *Series) Slice(lo, hi int) *Series {
	if lo < 0 {
		lo = 0
	}
	if hi > len(s.times) {
		hi = len(s.times)
	}
	if hi < lo {
		hi = lo
	}
	columns := make(map[string][]float64, len(s.columns))
	for name, col := range s.columns {
		columns[name] = col[lo:hi:hi]
	}
	return &Series{times: s.times[lo:hi:hi], columns: columns, names: s.names}
}
