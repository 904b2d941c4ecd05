// Package main runs the usage server:
// - HTTP API: statistics, records, conversions, period usage
// - Record feed: WebSocket push of every newly stored record
// - Collector (optional): periodic balance reads from the card portal
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prepaid-usage-lab/internal/api"
	"prepaid-usage-lab/internal/collector"
	"prepaid-usage-lab/internal/config"
	"prepaid-usage-lab/internal/observability"
	"prepaid-usage-lab/internal/portal"
	"prepaid-usage-lab/internal/statistics"
	"prepaid-usage-lab/internal/storage/backend"
	"prepaid-usage-lab/internal/usage"
)

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	addr := flag.String("addr", os.Getenv("HTTP_ADDR"), "HTTP listen address (overrides config)")
	storageBackend := flag.String("storage", os.Getenv("STORAGE_BACKEND"), "Storage backend: memory, postgres, clickhouse (overrides config)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	collect := flag.Bool("collect", false, "Enable the balance collector (overrides config)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.NewLoader(*configPath).LoadOrDefault()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
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
	if *collect {
		cfg.Collector.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.DefaultMetrics

	store, cleanup, err := backend.Open(ctx, cfg.Storage, metrics, logger)
	if err != nil {
		logger.Fatalf("Failed to open %s storage: %v", cfg.Storage.Backend, err)
	}
	defer cleanup()
	logger.Printf("Using %s storage", cfg.Storage.Backend)

	converter := usage.NewConverter(cfg.SpreadConfig(), usage.WithObserver(metrics))
	if spread := converter.SpreadConfig(); spread.MaxGapSeconds > 0 {
		logger.Printf("Spreading gaps over %.0fs (tolerance %.0fs)", spread.MaxGapSeconds, spread.ToleranceSeconds)
	} else {
		logger.Println("Spreading disabled by config")
	}
	stats := statistics.NewService(store, converter)

	hub := api.NewHub(api.HubConfig{
		Backlog:        cfg.Server.FeedBacklog,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, metrics, log.New(os.Stdout, "[feed] ", log.LstdFlags|log.Lshortfile))

	handler := api.NewHandler(api.HandlerOptions{
		Stats:    stats,
		Store:    store,
		Listener: hub,
		Metrics:  metrics,
		Logger:   log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile),
	})
	router := api.NewRouter(handler, hub, observability.Handler())

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Wrap(router, cfg.Server.AllowedOrigins, os.Stdout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(cfg.Server.ShutdownTimeout + 5*time.Second):
			logger.Println("Graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	if cfg.Collector.Enabled {
		client, err := portal.NewClientFromConfig(cfg.Portal)
		if err != nil {
			logger.Fatalf("Failed to create portal client: %v", err)
		}
		c := collector.New(collector.Options{
			Fetcher:   client,
			Store:     store,
			Listeners: []collector.Listener{hub},
			Metrics:   metrics,
			Interval:  cfg.Collector.Interval,
			Logger:    log.New(os.Stdout, "[collector] ", log.LstdFlags|log.Lshortfile),
		})
		go c.Run(ctx)
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		// feed connections are hijacked, Shutdown does not wait for them
		hub.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	logger.Printf("HTTP server listening on %s", cfg.Server.Addr)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}

	// ListenAndServe returns as soon as Shutdown starts
	<-stopped
	close(done)

	logger.Println("Shutdown complete")
}
