// Package collector periodically reads balances from the portal and stores them.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"prepaid-usage-lab/internal/domain"
	"prepaid-usage-lab/internal/observability"
	"prepaid-usage-lab/internal/portal"
	"prepaid-usage-lab/internal/storage"
)

// DefaultInterval matches the portal refresh cadence.
const DefaultInterval = 60 * time.Minute

// Listener is notified of every newly stored record.
type Listener interface {
	RecordAdded(sample domain.Sample)
}

// Collector fetches a balance reading and stores it.
type Collector struct {
	fetcher   portal.BalanceFetcher
	store     storage.RecordStore
	listeners []Listener
	metrics   *observability.Metrics
	interval  time.Duration
	logger    *log.Logger
}

// Options contains configuration for creating a Collector.
type Options struct {
	Fetcher   portal.BalanceFetcher
	Store     storage.RecordStore
	Listeners []Listener
	Metrics   *observability.Metrics // Default: observability.DefaultMetrics
	Interval  time.Duration          // Default: 60m
	Logger    *log.Logger
}

// New creates a new collector.
func New(opts Options) *Collector {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Collector{
		fetcher:   opts.Fetcher,
		store:     opts.Store,
		listeners: opts.Listeners,
		metrics:   metrics,
		interval:  interval,
		logger:    logger,
	}
}

// CollectOnce fetches one reading, stores it and notifies listeners.
func (c *Collector) CollectOnce(ctx context.Context) (domain.Sample, error) {
	start := time.Now()
	sample, err := c.fetcher.FetchBalances(ctx)
	c.metrics.RecordCollection(sample.Light, sample.AC, time.Since(start), err)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("fetch balances: %w", err)
	}

	if err := c.store.Insert(ctx, sample); err != nil {
		return domain.Sample{}, fmt.Errorf("store record: %w", err)
	}

	for _, l := range c.listeners {
		l.RecordAdded(sample)
	}

	return sample, nil
}

// Run collects immediately and then once per interval.
// It blocks until context is cancelled. Failed collections are logged and skipped.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Printf("Collector started, interval: %v", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Println("Collector stopping...")
			return ctx.Err()
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	sample, err := c.CollectOnce(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Printf("Collection failed: %v", err)
		return
	}
	c.logger.Printf("Collected record: light=%.2f ac=%.2f", sample.Light, sample.AC)
}
