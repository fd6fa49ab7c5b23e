// Package handlers provides the HTTP surface of the console gateway.
// Handlers coordinate between the HTTP layer and the console services,
// handling request parsing, validation, and response formatting.
//
// This package includes handlers for:
//   - Health checks and readiness probes
//   - Authentication and session lifecycle
//   - Shop catalog, carrier, and checkout
//   - Pentest orders and acquired digital assets
//   - AI chat, blueprints, views, and the threat feed
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/database"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/utils"
)

// HealthHandler handles health check endpoints for monitoring and
// orchestration. Provides both a simple liveness check and a readiness
// check that verifies the terminal store and the upstream backend.
type HealthHandler struct {
	store      *database.TerminalStore // Terminal store for readiness checks
	backendURL string                  // Upstream backend base URL
	httpClient *http.Client
}

// NewHealthHandler creates a new health handler.
//
// Example:
//
//	healthHandler := handlers.NewHealthHandler(store, cfg.Backend.BaseURL)
//	r.Get("/health", healthHandler.Health)
//	r.Get("/ready", healthHandler.Ready)
func NewHealthHandler(store *database.TerminalStore, backendURL string) *HealthHandler {
	return &HealthHandler{
		store:      store,
		backendURL: backendURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// HealthResponse represents the health check response structure.
// Used by both the basic health check and detailed readiness check.
//
// JSON example:
//
//	{
//	  "status": "ok",
//	  "timestamp": "2026-01-20T14:30:00Z",
//	  "services": {
//	    "redis": "healthy",
//	    "backend": "healthy"
//	  }
//	}
type HealthResponse struct {
	Status    string            `json:"status"`             // Overall status: "ok" or "degraded"
	Timestamp time.Time         `json:"timestamp"`          // Current server time
	Services  map[string]string `json:"services,omitempty"` // Individual service health (readiness only)
}

// Health returns a simple health check indicating the service is running.
// This is a liveness probe; it only checks that the application is alive,
// not that it is ready to serve traffic. Use Ready for readiness checks.
//
// Kubernetes liveness probe example:
//
//	livenessProbe:
//	  httpGet:
//	    path: /health
//	    port: 8080
//	  initialDelaySeconds: 10
//	  periodSeconds: 30
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	}

	utils.RespondWithJSON(w, r, http.StatusOK, response)
}

// Ready checks if the gateway is ready to accept traffic: the terminal
// store must answer a ping and the upstream backend must be reachable.
// Returns 200 OK when both are healthy, 503 Service Unavailable otherwise.
//
// Any HTTP response from the backend counts as reachable; the gateway
// does not care about backend status codes here, only connectivity.
//
// Kubernetes readiness probe example:
//
//	readinessProbe:
//	  httpGet:
//	    path: /ready
//	    port: 8080
//	  initialDelaySeconds: 5
//	  periodSeconds: 10
//	  failureThreshold: 3
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string)
	allHealthy := true

	// Check the terminal store
	if err := h.store.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Terminal store health check failed")
		services["redis"] = "unhealthy"
		allHealthy = false
	} else {
		services["redis"] = "healthy"
	}

	// Check backend reachability
	if err := h.pingBackend(ctx); err != nil {
		log.Error().Err(err).Msg("Backend health check failed")
		services["backend"] = "unhealthy"
		allHealthy = false
	} else {
		services["backend"] = "healthy"
	}

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Services:  services,
	}

	statusCode := http.StatusOK
	if !allHealthy {
		response.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	utils.RespondWithJSON(w, r, statusCode, response)
}

func (h *HealthHandler) pingBackend(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.backendURL, nil)
	if err != nil {
		return err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
