// Package backend opens the RecordStore selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log"

	"prepaid-usage-lab/internal/config"
	"prepaid-usage-lab/internal/observability"
	"prepaid-usage-lab/internal/storage"
	chstore "prepaid-usage-lab/internal/storage/clickhouse"
	"prepaid-usage-lab/internal/storage/memory"
	"prepaid-usage-lab/internal/storage/migrations"
	pgstore "prepaid-usage-lab/internal/storage/postgres"
)

// Open connects to the configured backend, applies migrations and wraps the
// store with query metrics. The returned cleanup releases connections.
// A nil logger uses log.Default().
func Open(ctx context.Context, cfg config.StorageConfig, metrics *observability.Metrics, logger *log.Logger) (storage.RecordStore, func(), error) {
	if logger == nil {
		logger = log.Default()
	}

	switch cfg.Backend {
	case config.BackendMemory, "":
		logger.Println("Using in-memory record store, records are lost on exit")
		return observability.NewInstrumentedStore(memory.NewRecordStore(), config.BackendMemory, metrics), func() {}, nil

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN,
			pgstore.WithMaxConns(cfg.PostgresMaxConns),
			pgstore.WithMinConns(cfg.PostgresMinConns),
			pgstore.WithMaxConnIdleTime(cfg.PostgresMaxConnIdle),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Printf("Applied %d postgres migrations: %v", len(applied), applied)
		store := observability.NewInstrumentedStore(pgstore.NewRecordStore(pool), config.BackendPostgres, metrics)
		return store, pool.Close, nil

	case config.BackendClickhouse:
		conn, applied, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		logger.Printf("Applied %d clickhouse migrations: %v", len(applied), applied)
		store := observability.NewInstrumentedStore(chstore.NewRecordStore(conn), config.BackendClickhouse, metrics)
		return store, func() { conn.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
