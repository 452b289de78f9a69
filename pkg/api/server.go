// Package api serves pcapbend capture editing sessions over a REST API.
//
// Every route lives under /api/v1 and is protected by the X-API-Key header
// when a key is configured. Prometheus metrics are served unprotected at
// /metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// NewRouter wires every route of server. registry is served at /metrics.
func NewRouter(server *Server, metrics *Metrics, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(server.config.APIKey)))

		// Health check
		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))

		// Sessions
		r.Post("/captures", metrics.InstrumentHandler("POST", "/api/v1/captures", server.handleCreateCapture))
		r.Get("/captures", metrics.InstrumentHandler("GET", "/api/v1/captures", server.handleListCaptures))
		r.Get("/captures/{id}", metrics.InstrumentHandler("GET", "/api/v1/captures/{id}", server.handleGetCapture))
		r.Delete("/captures/{id}", metrics.InstrumentHandler("DELETE", "/api/v1/captures/{id}", server.handleDeleteCapture))
		r.Get("/captures/{id}/pcapng", metrics.InstrumentHandler("GET", "/api/v1/captures/{id}/pcapng", server.handleDownloadCapture))
		r.Post("/captures/{id}/compact", metrics.InstrumentHandler("POST", "/api/v1/captures/{id}/compact", server.handleCompact))
		r.Post("/captures/{id}/send", metrics.InstrumentHandler("POST", "/api/v1/captures/{id}/send", server.handleSend))
		r.Post("/captures/{id}/edits", metrics.InstrumentHandler("POST", "/api/v1/captures/{id}/edits", server.handleApplyEdits))

		// Packets
		r.Get("/captures/{id}/packets", metrics.InstrumentHandler("GET", "/api/v1/captures/{id}/packets", server.handleListPackets))
		r.Post("/captures/{id}/packets", metrics.InstrumentHandler("POST", "/api/v1/captures/{id}/packets", server.handleAddPacket))
		r.Post("/captures/{id}/packets/find", metrics.InstrumentHandler("POST", "/api/v1/captures/{id}/packets/find", server.handleFindPackets))
		r.Post("/captures/{id}/packets/swap", metrics.InstrumentHandler("POST", "/api/v1/captures/{id}/packets/swap", server.handleSwapPackets))
		r.Post("/captures/{id}/packets/move", metrics.InstrumentHandler("POST", "/api/v1/captures/{id}/packets/move", server.handleMovePacket))
		r.Get("/captures/{id}/packets/{index}", metrics.InstrumentHandler("GET", "/api/v1/captures/{id}/packets/{index}", server.handleGetPacket))
		r.Put("/captures/{id}/packets/{index}", metrics.InstrumentHandler("PUT", "/api/v1/captures/{id}/packets/{index}", server.handleUpdatePacket))
		r.Delete("/captures/{id}/packets/{index}", metrics.InstrumentHandler("DELETE", "/api/v1/captures/{id}/packets/{index}", server.handleDeletePacket))
		r.Get("/captures/{id}/packets/{index}/raw", metrics.InstrumentHandler("GET", "/api/v1/captures/{id}/packets/{index}/raw", server.handleGetPacketRaw))
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, sessions SessionStore, config ServerConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(registry)
	server := NewServer(sessions, config, metrics, logger)

	addr := net.JoinHostPort(config.Bind, strconv.Itoa(config.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(server, metrics, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting pcapbend REST API server",
			slog.String("addr", addr),
			slog.Bool("auth", config.APIKey != ""))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve on %s: %w", addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down pcapbend REST API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
