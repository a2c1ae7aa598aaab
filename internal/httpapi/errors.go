package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"engined/internal/fetch"
	"engined/internal/host"
	"engined/internal/install"
	"engined/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case host.IsBadRequest(err):
		return http.StatusBadRequest
	case host.IsVersionNotFound(err), fetch.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, install.ErrUnsupportedArchive), errors.Is(err, install.ErrNoOrigin):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fetch.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
