package statistics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepaid-usage-lab/internal/domain"
	"prepaid-usage-lab/internal/storage/memory"
	"prepaid-usage-lab/internal/usage"
)

// Wednesday noon.
var testNow = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, samples ...domain.Sample) *Service {
	t.Helper()

	store := memory.NewRecordStore()
	require.NoError(t, store.InsertBulk(context.Background(), samples))

	converter := usage.NewConverter(domain.DefaultSpreadConfig())
	return NewService(store, converter, WithClock(func() time.Time { return testNow }))
}

func at(d time.Duration, light, ac float64) domain.Sample {
	return domain.Sample{Timestamp: float64(testNow.Add(d).Unix()), Light: light, AC: ac}
}

func TestService_Statistics(t *testing.T) {
	svc := newTestService(t,
		at(-240*time.Hour, 100, 50),
		at(-144*time.Hour, 90, 45),
		at(-48*time.Hour, 80, 40),
		at(-20*time.Hour, 75, 38),
		at(-10*time.Hour, 70, 30),
		at(-1*time.Hour, 72, 29),
	)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)

	// day window starts after the -20h record
	assert.Equal(t, 0.0, stats.LightTotalLastDay)
	assert.Equal(t, 1.0, stats.ACTotalLastDay)
	// week window starts after the -144h record
	assert.Equal(t, 10.0, stats.LightTotalLastWeek)
	assert.Equal(t, 11.0, stats.ACTotalLastWeek)
	assert.Equal(t, float64(testNow.Unix()), stats.Timestamp)
}

func TestService_StatisticsFallsBackToLatest(t *testing.T) {
	svc := newTestService(t, at(-240*time.Hour, 100, 50))

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.LightTotalLastWeek)
	assert.Zero(t, stats.ACTotalLastDay)
}

func TestService_StatisticsEmptyStore(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Statistics(context.Background())
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestService_RecordCount(t *testing.T) {
	svc := newTestService(t,
		at(-240*time.Hour, 100, 50),
		at(-48*time.Hour, 80, 40),
		at(-1*time.Hour, 72, 29),
	)

	info, err := svc.RecordCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.CountInfo{Total: 3, Last7Days: 2}, info)
}

func TestService_Records(t *testing.T) {
	svc := newTestService(t,
		at(-3*time.Hour, 10, 10),
		at(-2*time.Hour, 9, 9),
		at(-1*time.Hour, 8, 8),
	)
	ctx := context.Background()

	page, err := svc.Records(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, float64(testNow.Add(-time.Hour).Unix()), page[0].Timestamp)

	_, err = svc.Records(ctx, 0, 0)
	var paramErr *usage.ParamError
	require.True(t, errors.As(err, &paramErr))
	assert.Equal(t, "size", paramErr.Param)
}

func TestService_RecordsByTimeRange(t *testing.T) {
	svc := newTestService(t,
		at(-3*time.Hour, 10, 20),
		at(-2*time.Hour, 9, 18),
		at(-1*time.Hour, 7, 18),
	)
	ctx := context.Background()
	start := testNow.Add(-4 * time.Hour).Unix()

	raw, err := svc.RecordsByTimeRange(ctx, start, nil, nil)
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.Equal(t, 10.0, raw[0].Light)

	converted, err := svc.RecordsByTimeRange(ctx, start, nil, &domain.ConvertConfig{})
	require.NoError(t, err)
	require.Len(t, converted, 3)
	assert.Equal(t, []float64{0, 1, 2}, []float64{converted[0].Light, converted[1].Light, converted[2].Light})
	assert.Equal(t, []float64{0, 2, 0}, []float64{converted[0].AC, converted[1].AC, converted[2].AC})

	// stored data is untouched by conversion
	again, err := svc.RecordsByTimeRange(ctx, start, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestService_RecordsByTimeRangeInvalidEnd(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		start int64
		end   int64
	}{
		{"end before start", testNow.Unix() - 10, testNow.Unix() - 20},
		{"end in future", testNow.Unix() - 10, testNow.Unix() + 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := tt.end
			_, err := svc.RecordsByTimeRange(ctx, tt.start, &end, nil)

			var paramErr *usage.ParamError
			require.True(t, errors.As(err, &paramErr), "expected ParamError, got %v", err)
			assert.Equal(t, "end_time", paramErr.Param)
		})
	}
}

func TestService_RecentRecords(t *testing.T) {
	svc := newTestService(t,
		at(-72*time.Hour, 10, 10),
		at(-30*time.Hour, 9, 9),
		at(-1*time.Hour, 8, 8),
	)

	records, err := svc.RecentRecords(context.Background(), 2, nil)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = svc.RecentRecords(context.Background(), 0, nil)
	assert.Error(t, err)
}

func TestService_PeriodUsageList(t *testing.T) {
	mar12 := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	mar13 := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	sample := func(t time.Time, light, ac float64) domain.Sample {
		return domain.Sample{Timestamp: float64(t.Unix()), Light: light, AC: ac}
	}

	svc := newTestService(t,
		sample(mar12.Add(1*time.Hour), 100, 50),
		sample(mar12.Add(23*time.Hour), 90, 45),
		sample(mar13.Add(1*time.Hour), 88, 44),
		sample(mar13.Add(11*time.Hour), 80, 40),
	)

	list, err := svc.PeriodUsageList(context.Background(), domain.PeriodDay, 1, true)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, domain.PeriodUsage{
		StartTime: mar13.Unix(), EndTime: testNow.Unix(), LightUsage: 8, ACUsage: 4,
	}, list[0])
	assert.Equal(t, domain.PeriodUsage{
		StartTime: mar12.Unix(), EndTime: mar13.Unix() - 1, LightUsage: 10, ACUsage: 5,
	}, list[1])

	reversed, err := svc.PeriodUsageList(context.Background(), domain.PeriodDay, 1, false)
	require.NoError(t, err)
	assert.Equal(t, list[0], reversed[1])
}

func TestService_PeriodUsageListWeekAndMonth(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	weeks, err := svc.PeriodUsageList(ctx, domain.PeriodWeek, 2, true)
	require.NoError(t, err)
	require.Len(t, weeks, 3)
	// Monday 2024-03-11
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC).Unix(), weeks[0].StartTime)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).Unix(), weeks[1].StartTime)
	assert.Equal(t, time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC).Unix(), weeks[1].EndTime)

	months, err := svc.PeriodUsageList(ctx, domain.PeriodMonth, 1, true)
	require.NoError(t, err)
	require.Len(t, months, 2)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Unix(), months[1].StartTime)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC).Unix(), months[1].EndTime)
}

func TestService_PeriodUsageListInvalid(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.PeriodUsageList(ctx, domain.PeriodUnit("year"), 1, true)
	var paramErr *usage.ParamError
	require.True(t, errors.As(err, &paramErr))
	assert.Equal(t, "period", paramErr.Param)

	_, err = svc.PeriodUsageList(ctx, domain.PeriodDay, -1, true)
	require.True(t, errors.As(err, &paramErr))
	assert.Equal(t, "period_count", paramErr.Param)
}
