// Package main fetches one balance reading from the card portal and stores it.
// Intended to run from cron when the server's own collector is disabled.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"prepaid-usage-lab/internal/collector"
	"prepaid-usage-lab/internal/config"
	"prepaid-usage-lab/internal/observability"
	"prepaid-usage-lab/internal/portal"
	"prepaid-usage-lab/internal/storage/backend"
)

func main() {
	config.LoadEnvFile(".env")

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	storageBackend := flag.String("storage", os.Getenv("STORAGE_BACKEND"), "Storage backend (overrides config)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	token := flag.String("token", os.Getenv("PORTAL_TOKEN"), "Portal auth token (overrides config)")

	flag.Parse()

	logger := log.New(os.Stdout, "[collect] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.NewLoader(*configPath).LoadOrDefault()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *storageBackend != "" {
		cfg.Storage.Backend = *storageBackend
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = *clickhouseDSN
	}
	if *token != "" {
		cfg.Portal.Token = *token
	}
	if cfg.Storage.Backend == config.BackendMemory {
		logger.Fatal("A persistent storage backend is required (postgres or clickhouse)")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := backend.Open(ctx, cfg.Storage, observability.DefaultMetrics, logger)
	if err != nil {
		logger.Fatalf("Failed to open %s storage: %v", cfg.Storage.Backend, err)
	}
	defer cleanup()

	client, err := portal.NewClientFromConfig(cfg.Portal)
	if err != nil {
		logger.Fatalf("Failed to create portal client: %v", err)
	}

	c := collector.New(collector.Options{
		Fetcher: client,
		Store:   store,
		Logger:  logger,
	})

	sample, err := c.CollectOnce(ctx)
	if err != nil {
		logger.Printf("Collection failed: %v", err)
		cleanup()
		os.Exit(1)
	}

	logger.Printf("Record stored: timestamp=%.0f light=%.2f ac=%.2f", sample.Timestamp, sample.Light, sample.AC)
}
