package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

// SampleStore is an in-memory implementation of storage.SampleStore.
type SampleStore struct {
	mu   sync.RWMutex
	data []*domain.ParameterSample // insertion order
}

// NewSampleStore creates a new in-memory sample store.
func NewSampleStore() *SampleStore {
	return &SampleStore{}
}

// InsertBulk appends samples. Fails entire batch on any invalid sample.
func (s *SampleStore) InsertBulk(_ context.Context, samples []*domain.ParameterSample) error {
	if len(samples) == 0 {
		return nil
	}

	for _, sample := range samples {
		if sample == nil || sample.Time.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sample := range samples {
		s.data = append(s.data, copySample(sample))
	}
	return nil
}

// GetByTimeRange retrieves samples within [start, end] (inclusive), ordered by time ASC.
func (s *SampleStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.ParameterSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ParameterSample
	for _, sample := range s.data {
		if !sample.Time.Before(start) && !sample.Time.After(end) {
			result = append(result, copySample(sample))
		}
	}

	sortSamples(result)
	return result, nil
}

// GetAll retrieves every sample, ordered by time ASC.
func (s *SampleStore) GetAll(_ context.Context) ([]*domain.ParameterSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ParameterSample, 0, len(s.data))
	for _, sample := range s.data {
		result = append(result, copySample(sample))
	}

	sortSamples(result)
	return result, nil
}

// sortSamples sorts by time ASC, keeping insertion order for equal timestamps.
func sortSamples(samples []*domain.ParameterSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})
}

func copySample(sample *domain.ParameterSample) *domain.ParameterSample {
	values := make(map[string]float64, len(sample.Values))
	for k, v := range sample.Values {
		values[k] = v
	}
	return &domain.ParameterSample{Time: sample.Time, Values: values}
}

// Verify interface compliance at compile time.
var _ storage.SampleStore = (*SampleStore)(nil)
