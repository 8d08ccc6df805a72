// Package merge consolidates candidate segments separated by short gaps.
package merge

import (
	"sort"
	"time"

	"halo-cme-lab/internal/domain"
)

// DefaultGap is the largest gap between segments that still merges them.
const DefaultGap = 10 * time.Minute

// Group is a run of merged segments.
type Group struct {
	Start      time.Time
	End        time.Time
	AvgScore   float64       // max member average
	PeakScore  float64       // max member peak
	Duration   time.Duration // sum of member durations
	FirstIndex int
	LastIndex  int
	Members    int
}

// Merge merges consecutive segments whose gap (next.Start - current.End) is at
// most gap. Input order does not matter; output is ordered by Start.
func Merge(segments []domain.CandidateSegment, gap time.Duration) []Group {
	if len(segments) == 0 {
		return nil
	}
	sorted := make([]domain.CandidateSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	groups := make([]Group, 0, len(sorted))
	for _, seg := range sorted {
		if n := len(groups); n > 0 && seg.Start.Sub(groups[n-1].End) <= gap {
			last := &groups[n-1]
			if seg.End.After(last.End) {
				last.End = seg.End
			}
			last.AvgScore = max(last.AvgScore, seg.AvgScore)
			last.PeakScore = max(last.PeakScore, seg.PeakScore)
			last.Duration += seg.Duration
			last.FirstIndex = min(last.FirstIndex, seg.FirstIndex)
			last.LastIndex = max(last.LastIndex, seg.LastIndex)
			last.Members++
			continue
		}
		groups = append(groups, Group{
			Start:      seg.Start,
			End:        seg.End,
			AvgScore:   seg.AvgScore,
			PeakScore:  seg.PeakScore,
			Duration:   seg.Duration,
			FirstIndex: seg.FirstIndex,
			LastIndex:  seg.LastIndex,
			Members:    1,
		})
	}
	return groups
}
