package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/ingest"
	"halo-cme-lab/internal/storage"
)

// Source supplies the series and catalog for a run.
type Source interface {
	// Load reads the whole series and catalog.
	Load(ctx context.Context) ([]*domain.ParameterSample, []*domain.ExpectedWindow, error)
	// Name identifies the source in logs.
	Name() string
	// ReplayArgs are the detect flags that select this source again.
	ReplayArgs() string
}

// CSVSource reads the series and catalog from CSV files.
type CSVSource struct {
	SeriesPath  string
	CatalogPath string
	Logger      *zap.Logger
}

// Load implements Source.
func (s *CSVSource) Load(ctx context.Context) ([]*domain.ParameterSample, []*domain.ExpectedWindow, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	samples, report, err := ingest.ReadSeriesFile(s.SeriesPath, ingest.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	logger.Info("series loaded",
		zap.String("path", s.SeriesPath),
		zap.Int("rows", report.Rows),
		zap.Int("skipped_rows", report.SkippedRows),
		zap.Strings("parameters", report.Parameters),
	)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	catalog, err := ingest.ReadCatalogFile(s.CatalogPath, ingest.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return samples, catalog, nil
}

// Name implements Source.
func (s *CSVSource) Name() string { return "csv" }

// ReplayArgs implements Source.
func (s *CSVSource) ReplayArgs() string {
	return fmt.Sprintf("--series %q --catalog %q", s.SeriesPath, s.CatalogPath)
}

// StoreSource reads the series and catalog from storage. A zero Start and End
// load the full series.
type StoreSource struct {
	Samples storage.SampleStore
	Catalog storage.CatalogStore
	Start   time.Time
	End     time.Time
}

// Load implements Source.
func (s *StoreSource) Load(ctx context.Context) ([]*domain.ParameterSample, []*domain.ExpectedWindow, error) {
	if s.Samples == nil || s.Catalog == nil {
		return nil, nil, fmt.Errorf("store source: sample and catalog stores are required")
	}

	var samples []*domain.ParameterSample
	var err error
	if s.Start.IsZero() && s.End.IsZero() {
		samples, err = s.Samples.GetAll(ctx)
	} else {
		samples, err = s.Samples.GetByTimeRange(ctx, s.Start, s.End)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load samples: %w", err)
	}

	catalog, err := s.Catalog.GetAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	return samples, catalog, nil
}

// Name implements Source.
func (s *StoreSource) Name() string { return "database" }

// ReplayArgs implements Source.
func (s *StoreSource) ReplayArgs() string {
	if s.Start.IsZero() && s.End.IsZero() {
		return "--source database"
	}
	return fmt.Sprintf("--source database --from %s --to %s",
		s.Start.UTC().Format(time.RFC3339), s.End.UTC().Format(time.RFC3339))
}

// FixtureSource serves the built-in synthetic dataset.
type FixtureSource struct{}

// Load implements Source.
func (FixtureSource) Load(context.Context) ([]*domain.ParameterSample, []*domain.ExpectedWindow, error) {
	return FixtureSeries(), FixtureCatalog(), nil
}

// Name implements Source.
func (FixtureSource) Name() string { return "fixtures" }

// ReplayArgs implements Source.
func (FixtureSource) ReplayArgs() string { return "--use-fixtures" }
