// Package config provides configuration management for halo-cme-lab.
//
// Configuration Sources (priority order, high to low):
//  1. CLI flags
//  2. Environment variables (CME_* prefix, "." replaced by "_")
//  3. YAML config file (optional)
//  4. Built-in defaults
//
// Sections:
//
//  1. Detection: every tunable constant of the detection chain
//  2. Input: where the series and catalog are read from
//  3. Output: artifact directory
//  4. Storage: ClickHouse, Postgres and SQLite connections
//  5. Kafka: event publishing
//  6. Logging: level, format, rotated file sink
//  7. Metrics: Prometheus textfile output
package config

import (
	"time"

	"halo-cme-lab/internal/classify"
	"halo-cme-lab/internal/scoring"
)

// Config contains all configuration fields.
type Config struct {
	Detection DetectionConfig `mapstructure:"detection" yaml:"detection"`
	Input     InputConfig     `mapstructure:"input" yaml:"input"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Kafka     KafkaConfig     `mapstructure:"kafka" yaml:"kafka"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// DetectionConfig holds the constants that determine detection results.
type DetectionConfig struct {
	// Baseline
	RollingWindow int     `mapstructure:"rolling_window" yaml:"rolling_window"`
	Epsilon       float64 `mapstructure:"epsilon" yaml:"epsilon"`
	DailyBaseline bool    `mapstructure:"daily_baseline" yaml:"daily_baseline"`
	GlobalBlend   float64 `mapstructure:"global_blend" yaml:"global_blend"`

	// Scoring
	Weights      []scoring.ParameterWeight `mapstructure:"weights" yaml:"weights"`
	ZCap         float64                   `mapstructure:"z_cap" yaml:"z_cap"`
	Percentile   float64                   `mapstructure:"percentile" yaml:"percentile"`
	MinThreshold float64                   `mapstructure:"min_threshold" yaml:"min_threshold"`
	Margin       time.Duration             `mapstructure:"margin" yaml:"margin"`

	// Segmentation
	ThresholdPolicy   string        `mapstructure:"threshold_policy" yaml:"threshold_policy"`
	CorrectionTrigger float64       `mapstructure:"correction_trigger" yaml:"correction_trigger"`
	CorrectionFactor  float64       `mapstructure:"correction_factor" yaml:"correction_factor"`
	NoiseFloor        float64       `mapstructure:"noise_floor" yaml:"noise_floor"`
	NoiseFloorRatio   float64       `mapstructure:"noise_floor_ratio" yaml:"noise_floor_ratio"`
	MinDuration       time.Duration `mapstructure:"min_duration" yaml:"min_duration"`

	// Merging and classification
	MergeGap           time.Duration   `mapstructure:"merge_gap" yaml:"merge_gap"`
	StrengthBands      []classify.Band `mapstructure:"strength_bands" yaml:"strength_bands"`
	FallbackStrength   string          `mapstructure:"fallback_strength" yaml:"fallback_strength"`
	ClusterDetection   bool            `mapstructure:"cluster_detection" yaml:"cluster_detection"`
	ClusterMinDistance int             `mapstructure:"cluster_min_distance" yaml:"cluster_min_distance"`
	ClusterMinPeaks    int             `mapstructure:"cluster_min_peaks" yaml:"cluster_min_peaks"`

	// Execution; does not affect results
	Workers int `mapstructure:"workers" yaml:"-"`
}

// Input sources.
const (
	SourceCSV      = "csv"
	SourceDatabase = "database"
)

// InputConfig selects where the series and catalog come from.
type InputConfig struct {
	Source     string `mapstructure:"source" yaml:"source"` // csv or database
	SeriesCSV  string `mapstructure:"series_csv" yaml:"series_csv"`
	CatalogCSV string `mapstructure:"catalog_csv" yaml:"catalog_csv"`
}

// OutputConfig controls written artifacts.
type OutputConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	DebugScores bool   `mapstructure:"debug_scores" yaml:"debug_scores"`
}

// Run store backends.
const (
	RunStoreNone     = "none"
	RunStorePostgres = "postgres"
	RunStoreSQLite   = "sqlite"
)

// StorageConfig holds database connections.
type StorageConfig struct {
	ClickHouseDSN string `mapstructure:"clickhouse_dsn" yaml:"clickhouse_dsn"`
	PostgresDSN   string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	SQLitePath    string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	RunStore      string `mapstructure:"run_store" yaml:"run_store"` // none, postgres or sqlite
	PersistScores bool   `mapstructure:"persist_scores" yaml:"persist_scores"`
}

// KafkaConfig configures event publishing.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	Topic   string   `mapstructure:"topic" yaml:"topic"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// MetricsConfig configures Prometheus output.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	Textfile  string `mapstructure:"textfile" yaml:"textfile"`
}
