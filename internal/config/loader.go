package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "CME"

// Loader reads configuration from defaults, an optional YAML file, the
// environment and bound CLI flags.
type Loader struct {
	configPath string
	viper      *viper.Viper
}

// NewLoader creates a loader. An empty configPath skips the file source.
func NewLoader(configPath string) *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	l := &Loader{configPath: configPath, viper: v}
	l.setDefaults()
	return l
}

// BindFlag makes a CLI flag override key when the flag is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: flag not defined", key)
	}
	return l.viper.BindPFlag(key, flag)
}

// Load resolves all sources into a Config.
func (l *Loader) Load() (*Config, error) {
	if l.configPath != "" {
		if err := l.viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := l.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Load is a shortcut for NewLoader(configPath).Load().
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// setDefaults sets default values in viper.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()
	v := l.viper

	// Detection defaults
	d := defaults.Detection
	v.SetDefault("detection.rolling_window", d.RollingWindow)
	v.SetDefault("detection.epsilon", d.Epsilon)
	v.SetDefault("detection.daily_baseline", d.DailyBaseline)
	v.SetDefault("detection.global_blend", d.GlobalBlend)
	v.SetDefault("detection.weights", d.Weights)
	v.SetDefault("detection.z_cap", d.ZCap)
	v.SetDefault("detection.percentile", d.Percentile)
	v.SetDefault("detection.min_threshold", d.MinThreshold)
	v.SetDefault("detection.margin", d.Margin)
	v.SetDefault("detection.threshold_policy", d.ThresholdPolicy)
	v.SetDefault("detection.correction_trigger", d.CorrectionTrigger)
	v.SetDefault("detection.correction_factor", d.CorrectionFactor)
	v.SetDefault("detection.noise_floor", d.NoiseFloor)
	v.SetDefault("detection.noise_floor_ratio", d.NoiseFloorRatio)
	v.SetDefault("detection.min_duration", d.MinDuration)
	v.SetDefault("detection.merge_gap", d.MergeGap)
	v.SetDefault("detection.strength_bands", d.StrengthBands)
	v.SetDefault("detection.fallback_strength", d.FallbackStrength)
	v.SetDefault("detection.cluster_detection", d.ClusterDetection)
	v.SetDefault("detection.cluster_min_distance", d.ClusterMinDistance)
	v.SetDefault("detection.cluster_min_peaks", d.ClusterMinPeaks)
	v.SetDefault("detection.workers", d.Workers)

	// Input defaults
	v.SetDefault("input.source", defaults.Input.Source)
	v.SetDefault("input.series_csv", defaults.Input.SeriesCSV)
	v.SetDefault("input.catalog_csv", defaults.Input.CatalogCSV)

	// Output defaults
	v.SetDefault("output.dir", defaults.Output.Dir)
	v.SetDefault("output.debug_scores", defaults.Output.DebugScores)

	// Storage defaults
	v.SetDefault("storage.clickhouse_dsn", defaults.Storage.ClickHouseDSN)
	v.SetDefault("storage.postgres_dsn", defaults.Storage.PostgresDSN)
	v.SetDefault("storage.sqlite_path", defaults.Storage.SQLitePath)
	v.SetDefault("storage.run_store", defaults.Storage.RunStore)
	v.SetDefault("storage.persist_scores", defaults.Storage.PersistScores)

	// Kafka defaults
	v.SetDefault("kafka.enabled", defaults.Kafka.Enabled)
	v.SetDefault("kafka.brokers", defaults.Kafka.Brokers)
	v.SetDefault("kafka.topic", defaults.Kafka.Topic)

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)

	// Metrics defaults
	v.SetDefault("metrics.namespace", defaults.Metrics.Namespace)
	v.SetDefault("metrics.textfile", defaults.Metrics.Textfile)
}
