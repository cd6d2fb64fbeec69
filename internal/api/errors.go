package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mesh-intelligence/grid/internal/logger"
	"github.com/mesh-intelligence/grid/pkg/types"
)

// Error codes carried in JSON error bodies.
const (
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeValidation   = "validation_error"
	CodeConflict     = "conflict"
	CodeStorage      = "storage_fault"
)

const internalServerError = "Internal server error"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps an error to its HTTP status and code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	default:
		return http.StatusInternalServerError, CodeStorage
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		message = internalServerError
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("writing JSON response", "error", err)
	}
}

// statusError rebuilds a sentinel error from a response status so that
// clients classify failures with errors.Is like server code does.
func statusError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return types.ErrUnauthorized
	case http.StatusNotFound:
		return types.ErrNotFound
	case http.StatusConflict:
		return types.ErrConflict
	case http.StatusBadRequest:
		return types.ErrValidation
	default:
		return types.ErrStorage
	}
}
