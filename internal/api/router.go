package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"prepaid-usage-lab/internal/observability"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// NewRouter registers all routes. hub may be nil to disable the record feed.
func NewRouter(h *Handler, hub *Hub, metricsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, metricsMiddleware(h.metrics))

	r.HandleFunc("/health", h.health).Methods("GET")
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods("GET")
	}
	if hub != nil {
		r.Handle("/ws/records", hub).Methods("GET")
	}

	info := r.PathPrefix("/info").Subrouter()
	info.HandleFunc("/version", h.version).Methods("GET")
	info.HandleFunc("/statistics", h.statistics).Methods("GET")
	info.HandleFunc("/add_record", h.addRecord).Methods("POST")
	info.HandleFunc("/record_count", h.recordCount).Methods("GET")
	info.HandleFunc("/records", h.records).Methods("POST")
	info.HandleFunc("/records/time_range", h.recordsByTimeRange).Methods("POST")
	info.HandleFunc("/records/recent", h.recentRecords).Methods("POST")
	info.HandleFunc("/period_usage", h.periodUsage).Methods("GET")

	return r
}

// Wrap adds CORS and access logging around the router.
func Wrap(router http.Handler, allowedOrigins []string, accessLog io.Writer) http.Handler {
	var handler http.Handler = router
	if len(allowedOrigins) > 0 {
		handler = handlers.CORS(
			handlers.AllowedOrigins(allowedOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type", RequestIDHeader}),
			handlers.ExposedHeaders([]string{RequestIDHeader}),
			handlers.AllowCredentials(),
		)(handler)
	}
	if accessLog != nil {
		handler = handlers.LoggingHandler(accessLog, handler)
	}
	return handler
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer (websocket hijack).
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func metricsMiddleware(m *observability.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			// the feed is long-lived and needs the raw writer for hijacking
			if route == "/ws/records" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.RecordHTTPRequest(route, r.Method, strconv.Itoa(rec.status), time.Since(start).Seconds())
		})
	}
}
