package clickhouse

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

// SampleStore implements storage.SampleStore using ClickHouse.
// Samples are stored in long format, one row per (sample, parameter).
type SampleStore struct {
	conn *Conn
}

// NewSampleStore creates a new SampleStore.
func NewSampleStore(conn *Conn) *SampleStore {
	return &SampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SampleStore = (*SampleStore)(nil)

// InsertBulk appends samples. Each sample gets the next sequence number so
// duplicate timestamps read back in insertion order.
func (s *SampleStore) InsertBulk(ctx context.Context, samples []*domain.ParameterSample) error {
	if len(samples) == 0 {
		return nil
	}
	for _, sample := range samples {
		if sample == nil || sample.Time.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	next, err := s.nextSeq(ctx)
	if err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO solar_wind_samples (ts, seq, parameter, value)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, sample := range samples {
		seq := next + uint64(i)
		names := make([]string, 0, len(sample.Values))
		for name := range sample.Values {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			var value *float64
			if v := domain.NormalizeValue(sample.Values[name]); !math.IsNaN(v) {
				value = &v
			}
			if err := batch.Append(sample.Time.UTC(), seq, name, value); err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves samples within [start, end] (inclusive), ordered by time ASC.
func (s *SampleStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.ParameterSample, error) {
	query := `
		SELECT ts, seq, parameter, value
		FROM solar_wind_samples
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts ASC, seq ASC, parameter ASC
	`

	rows, err := s.conn.Query(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query samples by time range: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// GetAll retrieves every sample, ordered by time ASC.
func (s *SampleStore) GetAll(ctx context.Context) ([]*domain.ParameterSample, error) {
	query := `
		SELECT ts, seq, parameter, value
		FROM solar_wind_samples
		ORDER BY ts ASC, seq ASC, parameter ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// nextSeq returns the first unused sequence number.
func (s *SampleStore) nextSeq(ctx context.Context) (uint64, error) {
	var maxSeq uint64
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count(), max(seq) FROM solar_wind_samples`)
	if err := row.Scan(&count, &maxSeq); err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	return maxSeq + 1, nil
}

// scanSamples folds long-format rows back into samples. Rows must be ordered
// by (ts, seq).
func scanSamples(rows driver.Rows) ([]*domain.ParameterSample, error) {
	var samples []*domain.ParameterSample
	var current *domain.ParameterSample
	var currentSeq uint64

	for rows.Next() {
		var ts time.Time
		var seq uint64
		var parameter string
		var value *float64

		if err := rows.Scan(&ts, &seq, &parameter, &value); err != nil {
			return nil, fmt.Errorf("scan sample row: %w", err)
		}

		if current == nil || seq != currentSeq {
			current = &domain.ParameterSample{Time: ts.UTC(), Values: make(map[string]float64)}
			currentSeq = seq
			samples = append(samples, current)
		}

		if value != nil {
			current.Values[parameter] = *value
		} else {
			current.Values[parameter] = math.NaN()
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sample rows: %w", err)
	}
	return samples, nil
}
