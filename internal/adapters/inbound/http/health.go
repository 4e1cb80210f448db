// Package http serves the indexer's health endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/archon-research/alchemist-indexer/internal/ports/inbound"
)

// HealthServerConfig holds configuration for the health server.
type HealthServerConfig struct {
	// Addr is the address to listen on (e.g., ":8080")
	Addr string

	Logger *slog.Logger

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MetricsHandler, when set, is served at /metrics.
	MetricsHandler http.Handler
}

// HealthServerConfigDefaults returns a config with default values.
func HealthServerConfigDefaults() HealthServerConfig {
	return HealthServerConfig{
		Addr:         ":8080",
		Logger:       slog.Default(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// HealthServer exposes readiness and liveness probes.
//
// Endpoints:
//   - /health/ready  - 200 once the indexer has processed a message
//   - /health/live   - 200 while messages are processed regularly
//   - /health        - combined status for monitoring
//   - /metrics       - Prometheus exposition, when a handler is configured
//
// All endpoints return 503 once shuttingDown is set.
type HealthServer struct {
	server       *http.Server
	metrics      http.Handler
	checker      inbound.HealthChecker
	shuttingDown *atomic.Bool
	logger       *slog.Logger
}

// NewHealthServer creates a new health server. A nil shuttingDown flag is
// treated as never shutting down.
func NewHealthServer(config HealthServerConfig, checker inbound.HealthChecker, shuttingDown *atomic.Bool) *HealthServer {
	defaults := HealthServerConfigDefaults()
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if shuttingDown == nil {
		shuttingDown = new(atomic.Bool)
	}

	hs := &HealthServer{
		checker:      checker,
		metrics:      config.MetricsHandler,
		shuttingDown: shuttingDown,
		logger:       config.Logger.With("component", "health-server"),
	}

	hs.server = &http.Server{
		Addr:         config.Addr,
		Handler:      hs.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return hs
}

// Handler returns the health routes.
func (hs *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/ready", hs.handleReady)
	mux.HandleFunc("GET /health/live", hs.handleLive)
	mux.HandleFunc("GET /health", hs.handleHealth)
	if hs.metrics != nil {
		mux.Handle("GET /metrics", hs.metrics)
	}
	return mux
}

// Start listens in a background goroutine.
func (hs *HealthServer) Start() {
	go func() {
		hs.logger.Info("starting health server", "addr", hs.server.Addr)
		if err := hs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hs.logger.Error("health server failed", "error", err)
		}
	}()
}

// Shutdown gracefully stops the health server.
func (hs *HealthServer) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return hs.server.Shutdown(ctx)
}

func (hs *HealthServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	if hs.shuttingDown.Load() {
		hs.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	if hs.checker.IsReady() {
		hs.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	} else {
		hs.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
	}
}

func (hs *HealthServer) handleLive(w http.ResponseWriter, _ *http.Request) {
	if hs.shuttingDown.Load() {
		hs.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	if hs.checker.IsHealthy() {
		hs.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	} else {
		hs.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

func (hs *HealthServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if hs.shuttingDown.Load() {
		hs.respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":       "shutting_down",
			"ready":        false,
			"healthy":      false,
			"shuttingDown": true,
		})
		return
	}

	ready := hs.checker.IsReady()
	healthy := hs.checker.IsHealthy()
	status := "ok"
	statusCode := http.StatusOK
	if !ready || !healthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status":       status,
		"ready":        ready,
		"healthy":      healthy,
		"shuttingDown": false,
	}
	if br, ok := hs.checker.(inbound.BlockReporter); ok {
		body["lastBlock"] = br.LastBlock()
	}
	hs.respondJSON(w, statusCode, body)
}

func (hs *HealthServer) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		hs.logger.Error("failed to encode JSON response", "error", err)
	}
}
