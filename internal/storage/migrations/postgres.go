package migrations

import (
	"context"
	"fmt"

	"prepaid-usage-lab/internal/storage/postgres"
)

// RunPostgresMigrations creates the balance_records schema. Files are applied in
// name order and must be idempotent. Returns the names of the applied files.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	migrations, err := load(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(migrations))
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		applied = append(applied, m.Name)
	}
	return applied, nil
}
