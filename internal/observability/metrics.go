// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prepaid-usage-lab/internal/usage"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Collector metrics
	CollectionsTotal         *prometheus.CounterVec
	PortalLatency            prometheus.Histogram
	LightBalance             prometheus.Gauge
	ACBalance                prometheus.Gauge
	LastSuccessfulCollection prometheus.Gauge

	// Pipeline metrics
	ConversionsTotal *prometheus.CounterVec
	StageRunsTotal   *prometheus.CounterVec
	StageOutputSize  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	WSClients           prometheus.Gauge
}

// Compile-time interface check.
var _ usage.Observer = (*Metrics)(nil)

// NewMetrics creates a new Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new Metrics instance registered with reg.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "prepaid_usage_lab"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Collector metrics
		CollectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "collections_total",
			Help:      "Total number of balance collections by status",
		}, []string{"status"}),
		PortalLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "portal_latency_seconds",
			Help:      "Portal balance query latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		LightBalance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "light_balance",
			Help:      "Last collected light account balance",
		}),
		ACBalance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "ac_balance",
			Help:      "Last collected air-conditioner account balance",
		}),
		LastSuccessfulCollection: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_collection_timestamp",
			Help:      "Unix timestamp of last successful collection",
		}),

		// Pipeline metrics
		ConversionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "conversions_total",
			Help:      "Total number of balance to usage conversions by status",
		}, []string{"status"}),
		StageRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_runs_total",
			Help:      "Total number of pipeline stage runs",
		}, []string{"stage"}),
		StageOutputSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_output_points",
			Help:      "Number of points produced by a pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"stage"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// API metrics
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "method", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_clients",
			Help:      "Number of connected record feed clients",
		}),
	}
}

// ObserveStage implements usage.Observer.
func (m *Metrics) ObserveStage(stage string, _, out int) {
	m.StageRunsTotal.WithLabelValues(stage).Inc()
	m.StageOutputSize.WithLabelValues(stage).Observe(float64(out))
}

// RecordCollection records the outcome of one collection attempt.
func (m *Metrics) RecordCollection(light, ac float64, latency time.Duration, err error) {
	m.PortalLatency.Observe(latency.Seconds())
	if err != nil {
		m.CollectionsTotal.WithLabelValues("error").Inc()
		return
	}
	m.CollectionsTotal.WithLabelValues("success").Inc()
	m.LightBalance.Set(light)
	m.ACBalance.Set(ac)
	m.LastSuccessfulCollection.SetToCurrentTime()
}

// RecordConversion records a conversion run.
func (m *Metrics) RecordConversion(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ConversionsTotal.WithLabelValues(status).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method, code string, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns an HTTP handler exposing the metrics gathered by g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")
