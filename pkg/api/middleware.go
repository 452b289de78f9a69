package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ssargent/pcapbend/pkg/codec"
	"github.com/ssargent/pcapbend/pkg/edit"
	"github.com/ssargent/pcapbend/pkg/storage"
	"github.com/ssargent/pcapbend/pkg/store"
	"github.com/ssargent/pcapbend/pkg/transport"
)

// apiKeyMiddleware validates the X-API-Key header. An empty expected key
// disables the check.
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expectedKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			if apiKey != expectedKey {
				sendError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	response := APIResponse{
		Success: true,
		Data:    data,
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := APIResponse{
		Success: false,
		Error:   message,
	}
	_ = json.NewEncoder(w).Encode(response)
}

// sendFailure sends err with the status code its kind maps to
func sendFailure(w http.ResponseWriter, err error) {
	sendError(w, err.Error(), statusFor(err))
}

// statusFor maps package errors to HTTP status codes
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrSessionNotFound), errors.Is(err, store.ErrOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, store.ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrInvalidArgument),
		errors.Is(err, codec.ErrMalformedBlock),
		errors.Is(err, edit.ErrInvalidOp),
		errors.Is(err, transport.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, transport.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
