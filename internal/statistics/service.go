// Package statistics answers the read-side questions asked of the balance
// history: recent totals, per-period usage and converted record windows.
package statistics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"prepaid-usage-lab/internal/domain"
	"prepaid-usage-lab/internal/storage"
	"prepaid-usage-lab/internal/usage"
)

const secondsPerDay = 24 * 60 * 60

// ErrNoRecords is returned when a statistic needs at least one stored record.
var ErrNoRecords = errors.New("no record found: statistics need at least one record")

// Service computes statistics over a RecordStore.
type Service struct {
	store     storage.RecordStore
	converter *usage.Converter
	now       func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides the wall clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a statistics service.
func NewService(store storage.RecordStore, converter *usage.Converter, opts ...Option) *Service {
	s := &Service{
		store:     store,
		converter: converter,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Statistics returns usage totals over the last day and the last week.
// Each window starts after the oldest record younger than the cutoff;
// when no such record exists the newest record is used instead.
func (s *Service) Statistics(ctx context.Context) (domain.Statistics, error) {
	dayStart, err := s.anchorDaysAgo(ctx, 1)
	if err != nil {
		return domain.Statistics{}, err
	}
	weekStart, err := s.anchorDaysAgo(ctx, 7)
	if err != nil {
		return domain.Statistics{}, err
	}

	dayRecords, err := s.recordsAfter(ctx, dayStart)
	if err != nil {
		return domain.Statistics{}, err
	}
	weekRecords, err := s.recordsAfter(ctx, weekStart)
	if err != nil {
		return domain.Statistics{}, err
	}

	lightDay, acDay := usage.RoundedTotalUsage(dayRecords)
	lightWeek, acWeek := usage.RoundedTotalUsage(weekRecords)

	return domain.Statistics{
		Timestamp:          unixSeconds(s.now()),
		LightTotalLastDay:  lightDay,
		ACTotalLastDay:     acDay,
		LightTotalLastWeek: lightWeek,
		ACTotalLastWeek:    acWeek,
	}, nil
}

// RecordCount returns the total number of records and how many arrived in the last 7 days.
func (s *Service) RecordCount(ctx context.Context) (domain.CountInfo, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return domain.CountInfo{}, fmt.Errorf("count records: %w", err)
	}

	since := float64(s.now().Unix() - 7*secondsPerDay)
	recent, err := s.store.CountSince(ctx, since)
	if err != nil {
		return domain.CountInfo{}, fmt.Errorf("count recent records: %w", err)
	}

	return domain.CountInfo{Total: total, Last7Days: recent}, nil
}

// Records returns one page of raw balance records, newest first.
func (s *Service) Records(ctx context.Context, size, index int) ([]domain.Sample, error) {
	if size <= 0 {
		return nil, &usage.ParamError{Param: "size", Message: "size should be a positive integer"}
	}
	if index < 0 {
		return nil, &usage.ParamError{Param: "index", Message: "index should not be negative"}
	}

	records, err := s.store.GetPage(ctx, size, index)
	if err != nil {
		return nil, fmt.Errorf("get records page: %w", err)
	}
	return records, nil
}

// RecordsByTimeRange returns the records within [start, end] in ascending order.
// A nil end means now. With a non-nil cfg the balances are converted to usage.
func (s *Service) RecordsByTimeRange(ctx context.Context, start int64, end *int64, cfg *domain.ConvertConfig) ([]domain.Sample, error) {
	now := s.now().Unix()
	endTime := now
	if end != nil {
		endTime = *end
	}

	if endTime < start {
		return nil, &usage.ParamError{Param: "end_time", Message: "end_time should satisfy end_time >= start_time"}
	}
	if endTime > now {
		return nil, &usage.ParamError{Param: "end_time", Message: "end_time should be a time that in the past"}
	}

	records, err := s.store.GetByTimeRange(ctx, float64(start), float64(endTime))
	if err != nil {
		return nil, fmt.Errorf("get records by time range: %w", err)
	}

	if cfg == nil || len(records) == 0 {
		return records, nil
	}
	return s.converter.Convert(records, cfg)
}

// RecentRecords returns the records of the last days*24 hours.
func (s *Service) RecentRecords(ctx context.Context, days int, cfg *domain.ConvertConfig) ([]domain.Sample, error) {
	if days <= 0 {
		return nil, &usage.ParamError{Param: "days", Message: "days should be a positive integer"}
	}
	start := s.now().Unix() - int64(days)*secondsPerDay
	return s.RecordsByTimeRange(ctx, start, nil, cfg)
}

// PeriodUsageList returns the usage of the current period plus count earlier periods.
// The current period ends now; earlier periods are complete. The most recent
// period comes first unless recentOnTop is false.
func (s *Service) PeriodUsageList(ctx context.Context, unit domain.PeriodUnit, count int, recentOnTop bool) ([]domain.PeriodUsage, error) {
	if !unit.IsValid() {
		return nil, &usage.ParamError{Param: "period", Message: fmt.Sprintf("unknown period unit %q", unit)}
	}
	if count < 0 {
		return nil, &usage.ParamError{Param: "period_count", Message: "period_count should not be negative"}
	}

	now := s.now()
	start := unit.CurrentStart(now)
	end := now

	result := make([]domain.PeriodUsage, 0, count+1)
	for i := 0; i <= count; i++ {
		records, err := s.store.GetByTimeRange(ctx, float64(start.Unix()), float64(end.Unix()))
		if err != nil {
			return nil, fmt.Errorf("get records for period %d: %w", i, err)
		}

		light, ac := usage.RoundedTotalUsage(records)
		result = append(result, domain.PeriodUsage{
			StartTime:  start.Unix(),
			EndTime:    end.Unix(),
			LightUsage: light,
			ACUsage:    ac,
		})

		start = unit.PreviousStart(start)
		end = unit.End(start)
	}

	if !recentOnTop {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}

	return result, nil
}

// anchorDaysAgo finds the timestamp of the oldest record younger than days*24h.
// Falls back to the newest record; ErrNoRecords when the store is empty.
func (s *Service) anchorDaysAgo(ctx context.Context, days int64) (float64, error) {
	ideal := float64(s.now().Unix() - days*secondsPerDay)

	sample, err := s.store.EarliestAfter(ctx, ideal)
	if err == nil {
		return sample.Timestamp, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("find earliest record: %w", err)
	}

	sample, err = s.store.Latest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrNoRecords
		}
		return 0, fmt.Errorf("find latest record: %w", err)
	}
	return sample.Timestamp, nil
}

// recordsAfter returns records with timestamp strictly greater than after, ascending.
func (s *Service) recordsAfter(ctx context.Context, after float64) ([]domain.Sample, error) {
	records, err := s.store.GetByTimeRange(ctx, after, math.MaxFloat64)
	if err != nil {
		return nil, fmt.Errorf("get records after %v: %w", after, err)
	}
	for len(records) > 0 && records[0].Timestamp <= after {
		records = records[1:]
	}
	return records, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
