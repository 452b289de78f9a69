package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ssargent/pcapbend/pkg/codec"
	"github.com/ssargent/pcapbend/pkg/edit"
	"github.com/ssargent/pcapbend/pkg/storage"
	"github.com/ssargent/pcapbend/pkg/store"
	"github.com/ssargent/pcapbend/pkg/transport"
)

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		requestHeader  string
		expectedStatus int
	}{
		{
			name:           "valid API key",
			apiKey:         "test-key",
			requestHeader:  "test-key",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing API key header",
			apiKey:         "test-key",
			requestHeader:  "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid API key",
			apiKey:         "test-key",
			requestHeader:  "wrong-key",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "auth disabled",
			apiKey:         "",
			requestHeader:  "",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "auth disabled ignores header",
			apiKey:         "",
			requestHeader:  "anything",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create a test handler that just returns 200
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			// Apply the middleware
			middleware := apiKeyMiddleware(tt.apiKey)
			handler := middleware(testHandler)

			// Create request
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.requestHeader != "" {
				req.Header.Set("X-API-Key", tt.requestHeader)
			}

			// Create response recorder
			w := httptest.NewRecorder()

			// Execute request
			handler.ServeHTTP(w, req)

			// Check status
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestSendSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	sendSuccess(w, map[string]int{"count": 3})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	var response struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
		Error   string         `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response.Success || response.Error != "" {
		t.Errorf("Expected success envelope, got %+v", response)
	}
	if response.Data["count"] != 3 {
		t.Errorf("Expected count 3, got %v", response.Data)
	}
}

func TestSendFailure(t *testing.T) {
	w := httptest.NewRecorder()

	sendFailure(w, fmt.Errorf("%w: packet 7 of 2", store.ErrOutOfRange))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	var response APIResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Success {
		t.Error("Expected success to be false")
	}
	if !strings.Contains(response.Error, "packet 7 of 2") {
		t.Errorf("Expected error message to carry context, got %q", response.Error)
	}
	if response.Data != nil {
		t.Errorf("Expected no data, got %v", response.Data)
	}
}

func TestInstrumentAuthMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	handler := metrics.InstrumentAuthMiddleware(apiKeyMiddleware("test-key"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	for _, key := range []string{"test-key", "wrong-key", "test-key", ""} {
		req := httptest.NewRequest("GET", "/test", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := testutil.ToFloat64(metrics.authRequestsTotal.WithLabelValues(statusSuccess)); got != 2 {
		t.Errorf("Expected 2 successful auth requests, got %v", got)
	}
	// Requests without a key are not counted as auth attempts.
	if got := testutil.ToFloat64(metrics.authRequestsTotal.WithLabelValues(statusError)); got != 1 {
		t.Errorf("Expected 1 failed auth request, got %v", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"unknown session", fmt.Errorf("%w: abc", storage.ErrSessionNotFound), http.StatusNotFound},
		{"packet out of range", fmt.Errorf("%w: packet 9 of 3", store.ErrOutOfRange), http.StatusNotFound},
		{"session limit", storage.ErrTooManySessions, http.StatusTooManyRequests},
		{"invalid argument", store.ErrInvalidArgument, http.StatusBadRequest},
		{"malformed block", fmt.Errorf("%w: %w", store.ErrInvalidArgument, codec.ErrMalformedBlock), http.StatusBadRequest},
		{"bad edit", edit.ErrInvalidOp, http.StatusBadRequest},
		{"bad transport", transport.ErrUnknownKind, http.StatusBadRequest},
		{"unframeable stream", fmt.Errorf("%w: %w", store.ErrFormat, codec.ErrMalformedBlock), http.StatusUnprocessableEntity},
		{"body too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"edit script", &edit.ApplyError{Position: 1, Err: store.ErrOutOfRange}, http.StatusNotFound},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, got)
			}
		})
	}
}
