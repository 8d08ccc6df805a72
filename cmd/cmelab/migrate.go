package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"halo-cme-lab/internal/storage/migrations"
)

var migrateFlags = map[string]string{
	"postgres-dsn":   "storage.postgres_dsn",
	"clickhouse-dsn": "storage.clickhouse_dsn",
}

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema to Postgres and ClickHouse",
		Long: `Apply the embedded SQL migrations. Each configured database is migrated;
migrations are idempotent. The SQLite run store migrates itself on open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := a.loadConfig(cmd, migrateFlags)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.Storage.PostgresDSN == "" && cfg.Storage.ClickHouseDSN == "" {
				return fmt.Errorf("no database configured: set --postgres-dsn and/or --clickhouse-dsn")
			}

			var cl closers
			defer cl.close()

			if cfg.Storage.PostgresDSN != "" {
				pool, err := openPostgres(ctx, cfg, &cl)
				if err != nil {
					return err
				}
				applied, err := migrations.RunPostgresMigrations(ctx, pool)
				if err != nil {
					return err
				}
				logger.Info("postgres migrated", zap.Strings("files", applied))
				fmt.Fprintf(a.stdout, "Postgres: %d migrations applied\n", len(applied))
			}

			if cfg.Storage.ClickHouseDSN != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
				if err != nil {
					return err
				}
				_ = conn.Close()
				names, err := migrations.Names("clickhouse")
				if err != nil {
					return err
				}
				logger.Info("clickhouse migrated", zap.Strings("files", names))
				fmt.Fprintf(a.stdout, "ClickHouse: %d migrations applied\n", len(names))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("postgres-dsn", "", "Postgres connection string")
	f.String("clickhouse-dsn", "", "ClickHouse connection string")
	return cmd
}
