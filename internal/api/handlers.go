package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"prepaid-usage-lab/internal/domain"
	"prepaid-usage-lab/internal/observability"
	"prepaid-usage-lab/internal/statistics"
	"prepaid-usage-lab/internal/storage"
)

// Version is reported by GET /info/version.
const Version = "0.2.0"

const defaultPageSize = 20

// RecordListener is notified of records added through the API.
type RecordListener interface {
	RecordAdded(sample domain.Sample)
}

// Handler serves the /info endpoints.
type Handler struct {
	stats    *statistics.Service
	store    storage.RecordStore
	listener RecordListener
	metrics  *observability.Metrics
	logger   *log.Logger
	now      func() time.Time
}

// HandlerOptions contains configuration for creating a Handler.
type HandlerOptions struct {
	Stats    *statistics.Service
	Store    storage.RecordStore
	Listener RecordListener         // optional, e.g. the record feed hub
	Metrics  *observability.Metrics // Default: observability.DefaultMetrics
	Logger   *log.Logger
	Now      func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(opts HandlerOptions) *Handler {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		stats:    opts.Stats,
		store:    opts.Store,
		listener: opts.Listener,
		metrics:  metrics,
		logger:   logger,
		now:      now,
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Statistics(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) addRecord(w http.ResponseWriter, r *http.Request) {
	var sample domain.Sample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		writeJSON(w, http.StatusBadRequest, badRequest(fmt.Sprintf("invalid record body: %v", err)))
		return
	}

	useNow, err := queryBool(r, "use_current_timestamp", false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, badRequest(err.Error()))
		return
	}
	if useNow {
		sample.Timestamp = float64(h.now().UnixNano()) / float64(time.Second)
	}

	if err := h.store.Insert(r.Context(), sample); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.listener != nil {
		h.listener.RecordAdded(sample)
	}
	writeJSON(w, http.StatusOK, sample)
}

func (h *Handler) recordCount(w http.ResponseWriter, r *http.Request) {
	info, err := h.stats.RecordCount(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type paginationRequest struct {
	Size  *int `json:"size"`
	Index *int `json:"index"`
}

func (h *Handler) records(w http.ResponseWriter, r *http.Request) {
	var req paginationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, badRequest(fmt.Sprintf("invalid pagination body: %v", err)))
		return
	}
	if req.Index == nil {
		writeJSON(w, http.StatusBadRequest, badRequest("index is required"))
		return
	}
	size := defaultPageSize
	if req.Size != nil {
		size = *req.Size
	}

	records, err := h.stats.Records(r.Context(), size, *req.Index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type timeRangeRequest struct {
	StartTime     *int64                `json:"start_time"`
	EndTime       *int64                `json:"end_time"`
	ConvertConfig *domain.ConvertConfig `json:"convert_config"`
}

func (h *Handler) recordsByTimeRange(w http.ResponseWriter, r *http.Request) {
	var req timeRangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, badRequest(fmt.Sprintf("invalid time range body: %v", err)))
		return
	}
	if req.StartTime == nil {
		writeJSON(w, http.StatusBadRequest, badRequest("start_time is required"))
		return
	}

	records, err := h.stats.RecordsByTimeRange(r.Context(), *req.StartTime, req.EndTime, req.ConvertConfig)
	h.respondRecords(w, r, records, req.ConvertConfig, err)
}

type recentRequest struct {
	Days          int                   `json:"days"`
	ConvertConfig *domain.ConvertConfig `json:"convert_config"`
}

func (h *Handler) recentRecords(w http.ResponseWriter, r *http.Request) {
	req := recentRequest{Days: 7}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, badRequest(fmt.Sprintf("invalid recent records body: %v", err)))
		return
	}

	records, err := h.stats.RecentRecords(r.Context(), req.Days, req.ConvertConfig)
	h.respondRecords(w, r, records, req.ConvertConfig, err)
}

func (h *Handler) respondRecords(w http.ResponseWriter, r *http.Request, records []domain.Sample, cfg *domain.ConvertConfig, err error) {
	if cfg != nil {
		h.metrics.RecordConversion(err)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) periodUsage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	period := domain.PeriodDay
	if p := q.Get("period"); p != "" {
		parsed, err := domain.ParsePeriodUnit(p)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, badRequest(err.Error()))
			return
		}
		period = parsed
	}

	count := 7
	if c := q.Get("period_count"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, badRequest(fmt.Sprintf("invalid period_count %q", c)))
			return
		}
		count = n
	}

	recentOnTop, err := queryBool(r, "recent_on_top", true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, badRequest(err.Error()))
		return
	}

	list, err := h.stats.PeriodUsageList(r.Context(), period, count, recentOnTop)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func queryBool(r *http.Request, key string, def bool) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, v)
	}
	return b, nil
}
