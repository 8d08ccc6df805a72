package config

import (
	"time"

	"halo-cme-lab/internal/classify"
	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/scoring"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			RollingWindow: 15,
			Epsilon:       1e-6,
			DailyBaseline: false,
			GlobalBlend:   0.5,

			Weights:      scoring.DefaultWeights(),
			ZCap:         10,
			Percentile:   90,
			MinThreshold: 2.0,
			Margin:       48 * time.Hour,

			ThresholdPolicy:   "nonzero_corrective",
			CorrectionTrigger: 0.6,
			CorrectionFactor:  0.3,
			NoiseFloor:        3.0,
			NoiseFloorRatio:   0.4,
			MinDuration:       2 * time.Minute,

			MergeGap:           10 * time.Minute,
			StrengthBands:      classify.DefaultBands(),
			FallbackStrength:   string(domain.StrengthWeak),
			ClusterDetection:   true,
			ClusterMinDistance: 3,
			ClusterMinPeaks:    2,

			Workers: 0,
		},
		Input: InputConfig{
			Source:     SourceCSV,
			SeriesCSV:  "data/merged_swis_data.csv",
			CatalogCSV: "data/halo_cme_catalog.csv",
		},
		Output: OutputConfig{
			Dir:         "output",
			DebugScores: true,
		},
		Storage: StorageConfig{
			ClickHouseDSN: "",
			PostgresDSN:   "",
			SQLitePath:    "cmelab.db",
			RunStore:      RunStoreNone,
		},
		Kafka: KafkaConfig{
			Enabled: false,
			Topic:   "halo-cme-events",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{
			Namespace: "halo_cme_lab",
		},
	}
}
