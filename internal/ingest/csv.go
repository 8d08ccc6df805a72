// Package ingest reads the aligned solar-wind series and the expected-window
// catalog from CSV, and loads them into storage.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"halo-cme-lab/internal/domain"
)

// ErrMissingHeader is returned when a required column is absent.
var ErrMissingHeader = errors.New("missing required column")

// timeLayouts are tried in order; values without a zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses a timestamp in any supported layout and returns it in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseValue parses a numeric cell. Empty or unparsable cells and fill values
// are missing.
func ParseValue(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return domain.NormalizeValue(v)
}

// Option configures a reader.
type Option func(*options)

type options struct {
	timeColumn string
	columns    map[string]bool
	logger     *zap.Logger
}

// WithTimeColumn sets the series time column name (default "Time").
func WithTimeColumn(name string) Option {
	return func(o *options) {
		o.timeColumn = name
	}
}

// WithColumns restricts the series to the named parameters.
func WithColumns(names ...string) Option {
	return func(o *options) {
		o.columns = make(map[string]bool, len(names))
		for _, n := range names {
			o.columns[n] = true
		}
	}
}

// WithLogger sets the logger used for skipped-row warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) *options {
	o := &options{timeColumn: "Time", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SeriesReport counts what ReadSeries kept and dropped.
type SeriesReport struct {
	Rows        int
	SkippedRows int
	Parameters  []string
}

// ReadSeries reads a header-first CSV with one time column and numeric
// parameter columns. Rows with an unparsable time are skipped with a warning.
func ReadSeries(r io.Reader, opts ...Option) ([]*domain.ParameterSample, *SeriesReport, error) {
	o := buildOptions(opts)
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	timeIdx := -1
	params := make(map[int]string)
	report := &SeriesReport{}
	for i, h := range headers {
		h = strings.TrimSpace(h)
		switch {
		case strings.EqualFold(h, o.timeColumn):
			timeIdx = i
		case h == "":
		case o.columns == nil || o.columns[h]:
			params[i] = h
			report.Parameters = append(report.Parameters, h)
		}
	}
	if timeIdx < 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingHeader, o.timeColumn)
	}

	var samples []*domain.ParameterSample
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		if timeIdx >= len(record) {
			report.SkippedRows++
			o.logger.Warn("skipping short row", zap.Int("line", line))
			continue
		}
		ts, err := ParseTime(record[timeIdx])
		if err != nil {
			report.SkippedRows++
			o.logger.Warn("skipping row with invalid time", zap.Int("line", line), zap.Error(err))
			continue
		}

		values := make(map[string]float64, len(params))
		for idx, name := range params {
			if idx < len(record) {
				values[name] = ParseValue(record[idx])
			} else {
				values[name] = math.NaN()
			}
		}
		samples = append(samples, &domain.ParameterSample{Time: ts, Values: values})
		report.Rows++
	}

	return samples, report, nil
}

// ReadSeriesFile opens path and calls ReadSeries.
func ReadSeriesFile(path string, opts ...Option) ([]*domain.ParameterSample, *SeriesReport, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	return ReadSeries(file, opts...)
}

// catalogColumns maps accepted (lower-case) header names to fields.
var catalogColumns = map[string]string{
	"cme_number":     "id",
	"id":             "id",
	"launch_time":    "launch_time",
	"speed":          "speed",
	"halo_flag":      "halo_flag",
	"expected_start": "expected_start",
	"expected_end":   "expected_end",
}

// ReadCatalog reads the expected-window catalog. Header names are matched
// case-insensitively and unknown columns are ignored. Rows whose expected
// bounds cannot be parsed are skipped with a warning. Order is preserved.
func ReadCatalog(r io.Reader, opts ...Option) ([]*domain.ExpectedWindow, error) {
	o := buildOptions(opts)
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int)
	for i, h := range headers {
		if field, ok := catalogColumns[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := idx[field]; !dup {
				idx[field] = i
			}
		}
	}
	for _, required := range []string{"id", "expected_start", "expected_end"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingHeader, required)
		}
	}

	cell := func(record []string, field string) string {
		i, ok := idx[field]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var windows []*domain.ExpectedWindow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		id := cell(record, "id")
		start, errStart := ParseTime(cell(record, "expected_start"))
		end, errEnd := ParseTime(cell(record, "expected_end"))
		if id == "" || errStart != nil || errEnd != nil {
			o.logger.Warn("skipping catalog row", zap.Int("line", line), zap.String("id", id))
			continue
		}

		w := &domain.ExpectedWindow{
			ID:            id,
			HaloFlag:      cell(record, "halo_flag"),
			Speed:         ParseValue(cell(record, "speed")),
			ExpectedStart: start,
			ExpectedEnd:   end,
		}
		if launch, err := ParseTime(cell(record, "launch_time")); err == nil {
			w.LaunchTime = launch
		}
		windows = append(windows, w)
	}

	return windows, nil
}

// ReadCatalogFile opens path and calls ReadCatalog.
func ReadCatalogFile(path string, opts ...Option) ([]*domain.ExpectedWindow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCatalog(file, opts...)
}
