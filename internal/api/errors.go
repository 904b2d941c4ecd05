package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"prepaid-usage-lab/internal/statistics"
	"prepaid-usage-lab/internal/storage"
	"prepaid-usage-lab/internal/usage"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// errorBodyFor maps domain errors to HTTP errors.
func errorBodyFor(err error) ErrorBody {
	var paramErr *usage.ParamError
	switch {
	case errors.As(err, &paramErr):
		return ErrorBody{Name: "param_error", Message: paramErr.Error(), Status: http.StatusBadRequest}
	case errors.Is(err, usage.ErrNotAscending), errors.Is(err, usage.ErrInvalidTimestamp),
		errors.Is(err, storage.ErrInvalidInput):
		return ErrorBody{Name: "param_error", Message: err.Error(), Status: http.StatusBadRequest}
	case errors.Is(err, statistics.ErrNoRecords), errors.Is(err, storage.ErrNotFound):
		return ErrorBody{Name: "no_result", Message: err.Error(), Status: http.StatusNotFound}
	case errors.Is(err, storage.ErrDuplicateKey):
		return ErrorBody{Name: "duplicate_record", Message: err.Error(), Status: http.StatusConflict}
	default:
		return ErrorBody{Name: "internal_error", Message: "internal server error", Status: http.StatusInternalServerError}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBodyFor(err)
	if body.Status == http.StatusInternalServerError {
		h.logger.Printf("%s %s [%s]: %v", r.Method, r.URL.Path, requestIDFrom(r.Context()), err)
	}
	writeJSON(w, body.Status, body)
}

func badRequest(message string) ErrorBody {
	return ErrorBody{Name: "param_error", Message: message, Status: http.StatusBadRequest}
}
