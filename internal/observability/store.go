package observability

import (
	"context"
	"errors"
	"time"

	"prepaid-usage-lab/internal/domain"
	"prepaid-usage-lab/internal/storage"
)

// InstrumentedStore wraps a RecordStore and records query latency and errors.
type InstrumentedStore struct {
	next     storage.RecordStore
	database string
	metrics  *Metrics
}

// NewInstrumentedStore wraps next. database labels the metrics (memory, postgres, clickhouse).
func NewInstrumentedStore(next storage.RecordStore, database string, metrics *Metrics) *InstrumentedStore {
	if metrics == nil {
		metrics = DefaultMetrics
	}
	return &InstrumentedStore{next: next, database: database, metrics: metrics}
}

// Compile-time interface check.
var _ storage.RecordStore = (*InstrumentedStore)(nil)

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	s.metrics.RecordDBQuery(s.database, operation, time.Since(start).Seconds(), err)
}

func (s *InstrumentedStore) Insert(ctx context.Context, sample domain.Sample) (err error) {
	defer func(start time.Time) { s.observe("insert", start, err) }(time.Now())
	return s.next.Insert(ctx, sample)
}

func (s *InstrumentedStore) InsertBulk(ctx context.Context, samples []domain.Sample) (err error) {
	defer func(start time.Time) { s.observe("insert_bulk", start, err) }(time.Now())
	return s.next.InsertBulk(ctx, samples)
}

func (s *InstrumentedStore) GetByTimeRange(ctx context.Context, start, end float64) (result []domain.Sample, err error) {
	defer func(begin time.Time) { s.observe("get_by_time_range", begin, err) }(time.Now())
	return s.next.GetByTimeRange(ctx, start, end)
}

func (s *InstrumentedStore) GetPage(ctx context.Context, size, index int) (result []domain.Sample, err error) {
	defer func(start time.Time) { s.observe("get_page", start, err) }(time.Now())
	return s.next.GetPage(ctx, size, index)
}

func (s *InstrumentedStore) Count(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { s.observe("count", start, err) }(time.Now())
	return s.next.Count(ctx)
}

func (s *InstrumentedStore) CountSince(ctx context.Context, since float64) (n int64, err error) {
	defer func(start time.Time) { s.observe("count_since", start, err) }(time.Now())
	return s.next.CountSince(ctx, since)
}

// EarliestAfter and Latest report ErrNotFound as a normal outcome, not a query error.
func (s *InstrumentedStore) EarliestAfter(ctx context.Context, after float64) (sample domain.Sample, err error) {
	defer func(start time.Time) { s.observe("earliest_after", start, ignoreNotFound(err)) }(time.Now())
	return s.next.EarliestAfter(ctx, after)
}

func (s *InstrumentedStore) Latest(ctx context.Context) (sample domain.Sample, err error) {
	defer func(start time.Time) { s.observe("latest", start, ignoreNotFound(err)) }(time.Now())
	return s.next.Latest(ctx)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
