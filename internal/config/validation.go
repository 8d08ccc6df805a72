package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"

	"halo-cme-lab/internal/segment"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error
	errs = append(errs, c.Detection.validate()...)

	// Validate input configuration
	switch c.Input.Source {
	case SourceCSV:
		if c.Input.SeriesCSV == "" {
			errs = append(errs, &ValidationError{Field: "input.series_csv", Message: "series_csv is required when source is csv"})
		}
		if c.Input.CatalogCSV == "" {
			errs = append(errs, &ValidationError{Field: "input.catalog_csv", Message: "catalog_csv is required when source is csv"})
		}
	case SourceDatabase:
		if c.Storage.ClickHouseDSN == "" {
			errs = append(errs, &ValidationError{Field: "storage.clickhouse_dsn", Message: "clickhouse_dsn is required when source is database"})
		}
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, &ValidationError{Field: "storage.postgres_dsn", Message: "postgres_dsn is required when source is database"})
		}
	default:
		errs = append(errs, &ValidationError{
			Field:   "input.source",
			Message: fmt.Sprintf("source must be csv or database, got %q", c.Input.Source),
		})
	}

	// Validate output configuration
	if c.Output.Dir == "" {
		errs = append(errs, &ValidationError{Field: "output.dir", Message: "dir is required"})
	}

	// Validate storage configuration
	switch c.Storage.RunStore {
	case RunStoreNone, "":
	case RunStorePostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, &ValidationError{Field: "storage.postgres_dsn", Message: "postgres_dsn is required when run_store is postgres"})
		}
	case RunStoreSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, &ValidationError{Field: "storage.sqlite_path", Message: "sqlite_path is required when run_store is sqlite"})
		}
	default:
		errs = append(errs, &ValidationError{
			Field:   "storage.run_store",
			Message: fmt.Sprintf("run_store must be none, postgres or sqlite, got %q", c.Storage.RunStore),
		})
	}
	if c.Storage.PersistScores && c.Storage.ClickHouseDSN == "" {
		errs = append(errs, &ValidationError{Field: "storage.clickhouse_dsn", Message: "clickhouse_dsn is required when persist_scores is true"})
	}

	// Validate kafka configuration
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, &ValidationError{Field: "kafka.brokers", Message: "at least one broker is required when kafka is enabled"})
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, &ValidationError{Field: "kafka.topic", Message: "topic is required when kafka is enabled"})
		}
	}

	// Validate logging configuration
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level %q", c.Logging.Level),
		})
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("format must be json or console, got %q", c.Logging.Format),
		})
	}

	return errs
}

// Err joins the validation errors into one error, or returns nil.
func (c *Config) Err() error {
	errs := c.Validate()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (d *DetectionConfig) validate() []error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: "detection." + field, Message: fmt.Sprintf(format, args...)})
	}

	if d.RollingWindow < 1 {
		add("rolling_window", "must be at least 1, got %d", d.RollingWindow)
	}
	if d.Epsilon <= 0 {
		add("epsilon", "must be positive, got %g", d.Epsilon)
	}
	if d.GlobalBlend < 0 || d.GlobalBlend > 1 {
		add("global_blend", "must be between 0 and 1, got %g", d.GlobalBlend)
	}
	if d.Percentile < 0 || d.Percentile > 100 {
		add("percentile", "must be between 0 and 100, got %g", d.Percentile)
	}
	if d.MinThreshold < 0 {
		add("min_threshold", "must not be negative, got %g", d.MinThreshold)
	}
	if d.Margin < 0 {
		add("margin", "must not be negative, got %s", d.Margin)
	}

	if len(d.Weights) == 0 {
		add("weights", "at least one parameter weight is required")
	}
	seen := make(map[string]bool, len(d.Weights))
	for i, w := range d.Weights {
		switch {
		case w.Name == "":
			add(fmt.Sprintf("weights[%d].name", i), "name is required")
		case seen[w.Name]:
			add(fmt.Sprintf("weights[%d].name", i), "duplicate parameter %q", w.Name)
		}
		seen[w.Name] = true
		if w.Weight < 0 {
			add(fmt.Sprintf("weights[%d].weight", i), "must not be negative, got %g", w.Weight)
		}
	}

	if d.ThresholdPolicy != segment.PolicyPercentile && d.ThresholdPolicy != segment.PolicyNonzeroCorrective {
		add("threshold_policy", "must be %s or %s, got %q",
			segment.PolicyPercentile, segment.PolicyNonzeroCorrective, d.ThresholdPolicy)
	}
	if d.CorrectionTrigger <= 0 || d.CorrectionTrigger > 1 {
		add("correction_trigger", "must be in (0, 1], got %g", d.CorrectionTrigger)
	}
	if d.CorrectionFactor < 0 || d.CorrectionFactor > 1 {
		add("correction_factor", "must be between 0 and 1, got %g", d.CorrectionFactor)
	}
	if d.NoiseFloor < 0 {
		add("noise_floor", "must not be negative, got %g", d.NoiseFloor)
	}
	if d.NoiseFloorRatio < 0 {
		add("noise_floor_ratio", "must not be negative, got %g", d.NoiseFloorRatio)
	}
	if d.MinDuration < 0 {
		add("min_duration", "must not be negative, got %s", d.MinDuration)
	}
	if d.MergeGap < 0 {
		add("merge_gap", "must not be negative, got %s", d.MergeGap)
	}

	for i, b := range d.StrengthBands {
		if b.Label == "" {
			add(fmt.Sprintf("strength_bands[%d].label", i), "label is required")
		}
	}
	if d.FallbackStrength == "" {
		add("fallback_strength", "fallback_strength is required")
	}
	if d.ClusterMinDistance < 1 {
		add("cluster_min_distance", "must be at least 1, got %d", d.ClusterMinDistance)
	}
	if d.ClusterMinPeaks < 1 {
		add("cluster_min_peaks", "must be at least 1, got %d", d.ClusterMinPeaks)
	}
	if d.Workers < 0 {
		add("workers", "must not be negative, got %d", d.Workers)
	}

	return errs
}
