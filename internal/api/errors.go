package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/j-veylop/energy-kpi/internal/db"
	"github.com/j-veylop/energy-kpi/internal/interval"
	"github.com/j-veylop/energy-kpi/internal/logger"
)

type constError string

func (e constError) Error() string { return string(e) }

// ErrBadRequest wraps every client input error that is not an interval error.
const ErrBadRequest = constError("bad request")

// ErrConflict is returned when a series identifier is already registered.
const ErrConflict = constError("already exists")

const internalErrorMessage = "an internal server error occurred"

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Internal details are logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, interval.ErrInvalidInterval):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid interval"})
	case errors.Is(err, ErrBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, db.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: internalErrorMessage})
	}
}
