package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"halo-cme-lab/internal/config"
	"halo-cme-lab/internal/observability"
	"halo-cme-lab/internal/pipeline"
	"halo-cme-lab/internal/publish"
	chstore "halo-cme-lab/internal/storage/clickhouse"
	"halo-cme-lab/internal/storage/postgres"
)

var detectFlags = map[string]string{
	"series":           "input.series_csv",
	"catalog":          "input.catalog_csv",
	"source":           "input.source",
	"output":           "output.dir",
	"debug-scores":     "output.debug_scores",
	"workers":          "detection.workers",
	"run-store":        "storage.run_store",
	"sqlite-path":      "storage.sqlite_path",
	"postgres-dsn":     "storage.postgres_dsn",
	"clickhouse-dsn":   "storage.clickhouse_dsn",
	"persist-scores":   "storage.persist_scores",
	"publish":          "kafka.enabled",
	"kafka-brokers":    "kafka.brokers",
	"kafka-topic":      "kafka.topic",
	"metrics-textfile": "metrics.textfile",
}

func newDetectCmd(a *app) *cobra.Command {
	var (
		useFixtures bool
		from, to    string
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run detection and write the output tables",
		Long: `Run detection over every catalog window and write:

  debug_scores/CME_<id>_scores.csv
  detected_halo_cmes.csv
  evaluation_summary.csv
  evaluation_metrics.txt
  false_negatives.csv
  DETECTION_REPORT.md

Examples:

  cmelab detect --series data/merged_swis_data.csv --catalog data/halo_cme_catalog.csv
  cmelab detect --use-fixtures --output /tmp/out
  cmelab detect --source database --run-store postgres`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := a.loadConfig(cmd, detectFlags)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			var cl closers
			defer cl.close()

			p, err := pipeline.NewPipeline(cfg)
			if err != nil {
				return err
			}
			p.WithLogger(logger).
				WithConfigPath(a.configPath).
				WithMetrics(observability.NewMetrics(cfg.Metrics.Namespace), cfg.Metrics.Textfile)

			runStore, err := openRunStore(ctx, cfg, logger, &cl)
			if err != nil {
				return err
			}
			if runStore != nil {
				p.WithRunStore(runStore)
			}

			if cfg.Storage.PersistScores {
				conn, err := openClickHouse(ctx, cfg, &cl)
				if err != nil {
					return err
				}
				p.WithScoreStore(chstore.NewScoreStore(conn))
			}

			if cfg.Kafka.Enabled {
				pub, err := publish.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
				if err != nil {
					return err
				}
				defer pub.Close()
				p.WithPublisher(pub)
			}

			src, err := a.detectSource(cmd, cfg, logger, &cl, useFixtures, from, to)
			if err != nil {
				return err
			}

			result, err := p.Run(ctx, src)
			if err != nil {
				return err
			}

			s := result.Run.Summary
			fmt.Fprintf(a.stdout, "Run %s completed:\n", result.Run.RunID)
			fmt.Fprintf(a.stdout, "  Events: %d (TP %d, FP %d, FN %d)\n", len(result.Run.Events), s.TP, s.FP, s.FN)
			fmt.Fprintf(a.stdout, "  Precision %.2f  Recall %.2f  F1 %.2f\n", s.Precision, s.Recall, s.F1)
			if result.Stored {
				fmt.Fprintf(a.stdout, "  Stored in %s run store\n", cfg.Storage.RunStore)
			}
			if result.Published > 0 {
				fmt.Fprintf(a.stdout, "  Published %d events to %s\n", result.Published, cfg.Kafka.Topic)
			}
			for _, f := range result.Files {
				fmt.Fprintf(a.stdout, "  - %s\n", filepath.Join(cfg.Output.Dir, f))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&useFixtures, "use-fixtures", false, "run on the built-in synthetic dataset")
	f.StringVar(&from, "from", "", "database source: series start (RFC3339)")
	f.StringVar(&to, "to", "", "database source: series end (RFC3339)")
	f.String("series", "", "series CSV path")
	f.String("catalog", "", "catalog CSV path")
	f.String("source", "", "input source: csv or database")
	f.StringP("output", "o", "", "output directory")
	f.Bool("debug-scores", true, "write per-window composite score files")
	f.Int("workers", 0, "parallel window workers (0 = number of CPUs)")
	f.String("run-store", "", "persist runs: none, postgres or sqlite")
	f.String("sqlite-path", "", "SQLite database file")
	f.String("postgres-dsn", "", "Postgres connection string")
	f.String("clickhouse-dsn", "", "ClickHouse connection string")
	f.Bool("persist-scores", false, "store composite scores in ClickHouse")
	f.Bool("publish", false, "publish events to Kafka")
	f.StringSlice("kafka-brokers", nil, "Kafka broker addresses")
	f.String("kafka-topic", "", "Kafka topic")
	f.String("metrics-textfile", "", "write Prometheus metrics to this file")
	return cmd
}

// detectSource selects the input source from flags and configuration.
func (a *app) detectSource(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger, cl *closers, useFixtures bool, from, to string) (pipeline.Source, error) {
	ctx := cmd.Context()

	if useFixtures {
		return pipeline.FixtureSource{}, nil
	}

	switch cfg.Input.Source {
	case config.SourceDatabase:
		src := &pipeline.StoreSource{}
		if from != "" || to != "" {
			var err error
			if src.Start, err = time.Parse(time.RFC3339, from); err != nil {
				return nil, fmt.Errorf("invalid --from: %w", err)
			}
			if src.End, err = time.Parse(time.RFC3339, to); err != nil {
				return nil, fmt.Errorf("invalid --to: %w", err)
			}
		}
		conn, err := openClickHouse(ctx, cfg, cl)
		if err != nil {
			return nil, err
		}
		pool, err := openPostgres(ctx, cfg, cl)
		if err != nil {
			return nil, err
		}
		src.Samples = chstore.NewSampleStore(conn)
		src.Catalog = postgres.NewCatalogStore(pool)
		return src, nil
	default:
		return &pipeline.CSVSource{
			SeriesPath:  cfg.Input.SeriesCSV,
			CatalogPath: cfg.Input.CatalogCSV,
			Logger:      logger,
		}, nil
	}
}
