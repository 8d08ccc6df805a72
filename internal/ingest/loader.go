package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

// DefaultBatchSize is the number of samples written per InsertBulk call.
const DefaultBatchSize = 5000

// Loader copies CSV inputs into storage.
type Loader struct {
	samples   storage.SampleStore
	catalog   storage.CatalogStore
	batchSize int
	logger    *zap.Logger
}

// LoaderOptions contains configuration for creating a Loader.
type LoaderOptions struct {
	Samples   storage.SampleStore
	Catalog   storage.CatalogStore
	BatchSize int
	Logger    *zap.Logger
}

// NewLoader creates a new Loader.
func NewLoader(opts LoaderOptions) *Loader {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{
		samples:   opts.Samples,
		catalog:   opts.Catalog,
		batchSize: batchSize,
		logger:    logger.With(zap.String("component", "ingest")),
	}
}

// LoadResult contains statistics from a load operation.
type LoadResult struct {
	SamplesStored     int
	SamplesSkipped    int
	WindowsStored     int
	DuplicatesSkipped int
	Duration          time.Duration
}

// LoadFiles reads the series and catalog CSVs and stores them. Either path may
// be empty to skip that input.
func (l *Loader) LoadFiles(ctx context.Context, seriesPath, catalogPath string) (*LoadResult, error) {
	start := time.Now()
	result := &LoadResult{}

	if seriesPath != "" {
		if l.samples == nil {
			return result, errors.New("no sample store configured")
		}
		samples, report, err := ReadSeriesFile(seriesPath, WithLogger(l.logger))
		if err != nil {
			return result, fmt.Errorf("read series %s: %w", seriesPath, err)
		}
		result.SamplesSkipped = report.SkippedRows

		stored, err := l.StoreSamples(ctx, samples)
		result.SamplesStored = stored
		if err != nil {
			return result, err
		}
		l.logger.Info("series loaded",
			zap.String("path", seriesPath),
			zap.Int("rows", stored),
			zap.Int("skipped", report.SkippedRows),
			zap.Strings("parameters", report.Parameters))
	}

	if catalogPath != "" {
		if l.catalog == nil {
			return result, errors.New("no catalog store configured")
		}
		windows, err := ReadCatalogFile(catalogPath, WithLogger(l.logger))
		if err != nil {
			return result, fmt.Errorf("read catalog %s: %w", catalogPath, err)
		}

		stored, dupes, err := l.StoreCatalog(ctx, windows)
		result.WindowsStored = stored
		result.DuplicatesSkipped = dupes
		if err != nil {
			return result, err
		}
		l.logger.Info("catalog loaded",
			zap.String("path", catalogPath),
			zap.Int("windows", stored),
			zap.Int("duplicates", dupes))
	}

	result.Duration = time.Since(start)
	return result, nil
}

// StoreSamples writes samples in batches and returns the number stored.
func (l *Loader) StoreSamples(ctx context.Context, samples []*domain.ParameterSample) (int, error) {
	stored := 0
	for i := 0; i < len(samples); i += l.batchSize {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		end := min(i+l.batchSize, len(samples))

		batch := samples[i:end]
		if err := l.samples.InsertBulk(ctx, batch); err != nil {
			return stored, fmt.Errorf("store samples %d-%d: %w", i, end, err)
		}
		stored += len(batch)
	}
	return stored, nil
}

// StoreCatalog writes catalog records. If the bulk insert hits a duplicate the
// records are inserted one by one and duplicates are counted, not failed.
func (l *Loader) StoreCatalog(ctx context.Context, windows []*domain.ExpectedWindow) (stored, dupes int, err error) {
	if len(windows) == 0 {
		return 0, 0, nil
	}

	err = l.catalog.InsertBulk(ctx, windows)
	if err == nil {
		return len(windows), 0, nil
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		return 0, 0, fmt.Errorf("store catalog: %w", err)
	}

	for _, w := range windows {
		if err := l.catalog.Insert(ctx, w); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				dupes++
				continue
			}
			return stored, dupes, fmt.Errorf("store catalog record %s: %w", w.ID, err)
		}
		stored++
	}
	return stored, dupes, nil
}
