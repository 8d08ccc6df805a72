package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"halo-cme-lab/internal/config"
	"halo-cme-lab/internal/storage"
	chstore "halo-cme-lab/internal/storage/clickhouse"
	"halo-cme-lab/internal/storage/postgres"
	"halo-cme-lab/internal/storage/sqlite"
)

// closers releases opened connections in reverse order.
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// openRunStore opens the configured run store. Returns nil for "none".
func openRunStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, cl *closers) (storage.RunStore, error) {
	switch cfg.Storage.RunStore {
	case config.RunStorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		cl.add(pool.Close)
		logger.Info("run store opened", zap.String("backend", "postgres"))
		return postgres.NewRunStore(pool), nil
	case config.RunStoreSQLite:
		s, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		cl.add(func() { _ = s.Close() })
		logger.Info("run store opened", zap.String("backend", "sqlite"), zap.String("path", cfg.Storage.SQLitePath))
		return s, nil
	case config.RunStoreNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown run store %q", cfg.Storage.RunStore)
	}
}

// openClickHouse connects to the configured ClickHouse database.
func openClickHouse(ctx context.Context, cfg *config.Config, cl *closers) (*chstore.Conn, error) {
	if cfg.Storage.ClickHouseDSN == "" {
		return nil, fmt.Errorf("clickhouse dsn is not configured")
	}
	conn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
	if err != nil {
		return nil, err
	}
	cl.add(func() { _ = conn.Close() })
	return conn, nil
}

// openPostgres connects to the configured Postgres database.
func openPostgres(ctx context.Context, cfg *config.Config, cl *closers) (*postgres.Pool, error) {
	if cfg.Storage.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres dsn is not configured")
	}
	pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, err
	}
	cl.add(pool.Close)
	return pool, nil
}
