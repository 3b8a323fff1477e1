package httpapi

import (
	"encoding/json"
	"net/http"

	"modelcore/internal/status"
	"modelcore/pkg/types"
)

// httpStatus maps a status code carried by err to an HTTP status.
func httpStatus(err error) int {
	switch status.CodeOf(err) {
	case status.Success:
		return http.StatusOK
	case status.NotFound:
		return http.StatusNotFound
	case status.InvalidArgument:
		return http.StatusBadRequest
	case status.AlreadyExists:
		return http.StatusConflict
	case status.Unavailable:
		return http.StatusServiceUnavailable
	case status.Unsupported:
		return http.StatusNotImplemented
	case status.Cancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error payload with its mapped status.
func writeError(w http.ResponseWriter, err error) int {
	code := httpStatus(err)
	writeJSONError(w, code, status.Message(err))
	return code
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}
