package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepaid-usage-lab/internal/domain"
	"prepaid-usage-lab/internal/observability"
	"prepaid-usage-lab/internal/statistics"
	"prepaid-usage-lab/internal/storage/memory"
	"prepaid-usage-lab/internal/usage"
)

var testNow = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	server  *httptest.Server
	store   *memory.RecordStore
	hub     *Hub
	metrics *observability.Metrics
}

func newTestEnv(t *testing.T, samples ...domain.Sample) *testEnv {
	t.Helper()

	store := memory.NewRecordStore()
	require.NoError(t, store.InsertBulk(context.Background(), samples))

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry("test", reg)
	logger := log.New(io.Discard, "[test] ", log.LstdFlags)
	clock := func() time.Time { return testNow }

	converter := usage.NewConverter(domain.DefaultSpreadConfig(), usage.WithObserver(metrics))
	stats := statistics.NewService(store, converter, statistics.WithClock(clock))
	hub := NewHub(HubConfig{}, metrics, logger)

	h := NewHandler(HandlerOptions{
		Stats:    stats,
		Store:    store,
		Listener: hub,
		Metrics:  metrics,
		Logger:   logger,
		Now:      clock,
	})

	router := NewRouter(h, hub, observability.HandlerFor(reg))
	server := httptest.NewServer(Wrap(router, []string{"http://localhost:3000"}, nil))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})

	return &testEnv{server: server, store: store, hub: hub, metrics: metrics}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func hourly(hoursAgo ...int) []domain.Sample {
	samples := make([]domain.Sample, 0, len(hoursAgo))
	for i, h := range hoursAgo {
		samples = append(samples, domain.Sample{
			Timestamp: float64(testNow.Add(-time.Duration(h) * time.Hour).Unix()),
			Light:     100 - float64(i),
			AC:        50 - 2*float64(i),
		})
	}
	return samples
}

func TestAPI_Health(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestAPI_RequestIDPassthrough(t *testing.T) {
	env := newTestEnv(t)
	id := "0b0c7a4e-5d8e-4e8b-9a43-3c1f1e0a9d11"

	req, _ := http.NewRequest("GET", env.server.URL+"/health", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))
}

func TestAPI_Statistics(t *testing.T) {
	env := newTestEnv(t, hourly(30, 20, 10, 1)...)

	resp := env.do(t, "GET", "/info/statistics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stats := decode[domain.Statistics](t, resp)
	// the day window covers the records after the -20h anchor
	assert.Equal(t, 1.0, stats.LightTotalLastDay)
	assert.Equal(t, 2.0, stats.ACTotalLastDay)
	assert.Equal(t, 2.0, stats.LightTotalLastWeek)
	assert.Equal(t, 4.0, stats.ACTotalLastWeek)
}

func TestAPI_StatisticsEmpty(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "GET", "/info/statistics", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decode[ErrorBody](t, resp)
	assert.Equal(t, "no_result", body.Name)
	assert.Equal(t, http.StatusNotFound, body.Status)
}

func TestAPI_AddRecord(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "POST", "/info/add_record", `{"timestamp": 1000, "light_balance": 12.5, "ac_balance": 30}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, "POST", "/info/add_record", `{"timestamp": 1000, "light_balance": 12.5, "ac_balance": 30}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "duplicate_record", decode[ErrorBody](t, resp).Name)

	resp = env.do(t, "POST", "/info/add_record?use_current_timestamp=true", `{"timestamp": 1000, "light_balance": 12, "ac_balance": 29}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored := decode[domain.Sample](t, resp)
	assert.Equal(t, float64(testNow.Unix()), stored.Timestamp)

	count, _ := env.store.Count(context.Background())
	assert.Equal(t, int64(2), count)
}

func TestAPI_AddRecordInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "POST", "/info/add_record", `{"timestamp": "soon"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, "POST", "/info/add_record?use_current_timestamp=maybe", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_RecordCount(t *testing.T) {
	env := newTestEnv(t, hourly(300, 20, 1)...)

	resp := env.do(t, "GET", "/info/record_count", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.CountInfo{Total: 3, Last7Days: 2}, decode[domain.CountInfo](t, resp))
}

func TestAPI_Records(t *testing.T) {
	env := newTestEnv(t, hourly(3, 2, 1)...)

	resp := env.do(t, "POST", "/info/records", `{"size": 2, "index": 0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records := decode[[]domain.Sample](t, resp)
	require.Len(t, records, 2)
	assert.Greater(t, records[0].Timestamp, records[1].Timestamp)

	resp = env.do(t, "POST", "/info/records", `{"size": 2}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, "POST", "/info/records", `{"size": -1, "index": 0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_RecordsByTimeRange(t *testing.T) {
	env := newTestEnv(t, hourly(3, 2, 1)...)
	start := testNow.Add(-4 * time.Hour).Unix()

	body := `{"start_time": ` + itoa(start) + `, "convert_config": {"remove_first_point": true}}`
	resp := env.do(t, "POST", "/info/records/time_range", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	records := decode[[]domain.Sample](t, resp)
	require.Len(t, records, 2)
	assert.Equal(t, 1.0, records[0].Light)
	assert.Equal(t, 2.0, records[0].AC)

	future := testNow.Add(time.Hour).Unix()
	body = `{"start_time": ` + itoa(start) + `, "end_time": ` + itoa(future) + `}`
	resp = env.do(t, "POST", "/info/records/time_range", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[ErrorBody](t, resp).Message, "end_time")

	resp = env.do(t, "POST", "/info/records/time_range", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, "POST", "/info/records/time_range", `{"start_time": 0, "convert_config": {"merge_ratio": 0}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_RecentRecords(t *testing.T) {
	env := newTestEnv(t, hourly(72, 30, 1)...)

	resp := env.do(t, "POST", "/info/records/recent", `{"days": 2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.Sample](t, resp), 2)

	resp = env.do(t, "POST", "/info/records/recent", `{"days": 7, "convert_config": {"per_hour_usage": true}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records := decode[[]domain.Sample](t, resp)
	require.Len(t, records, 3)
	assert.Equal(t, 0.0, records[0].Light)
}

func TestAPI_PeriodUsage(t *testing.T) {
	env := newTestEnv(t, hourly(30, 20, 10, 1)...)

	resp := env.do(t, "GET", "/info/period_usage?period=day&period_count=2&recent_on_top=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[[]domain.PeriodUsage](t, resp)
	require.Len(t, list, 3)
	assert.Equal(t, testNow.Unix(), list[0].EndTime)
	assert.Greater(t, list[0].StartTime, list[1].StartTime)

	resp = env.do(t, "GET", "/info/period_usage?period=year", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, "GET", "/info/period_usage?period_count=-3", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_CORS(t *testing.T) {
	env := newTestEnv(t)

	req, _ := http.NewRequest("OPTIONS", env.server.URL+"/info/records", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestAPI_Metrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "GET", "/health", "")

	resp := env.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `test_api_requests_total{code="200",method="GET",route="/health"} 1`)
}

func TestErrorBodyFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, errorBodyFor(&usage.ParamError{Param: "x"}).Status)
	assert.Equal(t, http.StatusBadRequest, errorBodyFor(usage.ErrNotAscending).Status)
	assert.Equal(t, http.StatusNotFound, errorBodyFor(statistics.ErrNoRecords).Status)

	body := errorBodyFor(io.ErrUnexpectedEOF)
	assert.Equal(t, http.StatusInternalServerError, body.Status)
	assert.Equal(t, "internal server error", body.Message)
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
