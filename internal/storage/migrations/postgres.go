package migrations

import (
	"context"
	"fmt"

	"halo-cme-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order.
// Each file is idempotent (CREATE ... IF NOT EXISTS) and runs as one
// multi-statement Exec.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	ms, err := load(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(ms))
	for _, m := range ms {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		applied = append(applied, m.name)
	}
	return applied, nil
}
