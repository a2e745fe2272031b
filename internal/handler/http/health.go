// Package http provides HTTP handlers and middleware for the flow server.
// It includes the flow execution endpoint, WebSub callback handlers, health
// check endpoints, metrics collection, and various middleware components.
package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"rssflow/pkg/ratelimit"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy" or "unhealthy"
	Timestamp string                 `json:"timestamp"` // ISO 8601 format
	Checks    map[string]CheckStatus `json:"checks"`    // Status of each check item
	Version   string                 `json:"version"`   // Application version
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string                 `json:"status"`            // "healthy" or "unhealthy"
	Message string                 `json:"message,omitempty"` // Optional status message
	Details map[string]interface{} `json:"details,omitempty"` // Optional additional details
}

// RateLimiterHealthInfo contains health information for the outbound rate limiter.
type RateLimiterHealthInfo struct {
	ActiveKeys     int    `json:"active_keys"`     // Number of destination hosts being tracked
	MemoryBytes    int64  `json:"memory_bytes"`    // Estimated memory usage in bytes
	CircuitBreaker string `json:"circuit_breaker"` // Circuit breaker state (closed/open/half-open)
}

// HealthHandler handles health check endpoint requests.
// It performs connectivity checks against the subscription store (Postgres)
// and reports the outbound rate limiter's status for operational monitoring.
// A nil DB or rate limiter is treated as "not applicable" rather than
// unhealthy, so the same handler serves both the flow server (which owns
// the subscription store) and node processes that have neither.
type HealthHandler struct {
	DB      *sql.DB
	Version string

	// Outbound rate limiter components (optional)
	RateLimiterStore    ratelimit.RateLimitStore
	RateLimiterBreaker  *ratelimit.CircuitBreaker
	RateLimiterEnabled  bool
}

// ServeHTTP performs health checks and returns the application health status.
// It checks subscription store connectivity (if configured) and the state of
// the outbound rate limiter. Returns 200 OK if healthy, or 503 Service
// Unavailable if any check fails.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]CheckStatus)
	allHealthy := true

	if h.DB != nil {
		dbCheck := h.checkDatabase(ctx)
		checks["subscription_store"] = dbCheck
		if dbCheck.Status == "unhealthy" {
			allHealthy = false
		}
	}

	if h.RateLimiterEnabled {
		checks["rate_limiter"] = h.checkRateLimiter(ctx)
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("health: failed to encode response: %v", err)
	}
}

// checkDatabase checks subscription store connectivity and returns connection pool statistics.
func (h *HealthHandler) checkDatabase(ctx context.Context) CheckStatus {
	if err := h.DB.PingContext(ctx); err != nil {
		return CheckStatus{
			Status:  "unhealthy",
			Message: err.Error(),
		}
	}

	stats := h.DB.Stats()
	details := map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}

	if stats.MaxOpenConnections == 0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "connection pool max connections not configured",
			Details: details,
		}
	}

	utilizationPercent := float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100
	details["utilization_percent"] = utilizationPercent

	if utilizationPercent >= 80.0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "connection pool utilization above 80%",
			Details: details,
		}
	}

	return CheckStatus{
		Status:  "healthy",
		Details: details,
	}
}

// checkRateLimiter reports the state of the outbound rate limiter: active
// host count, approximate memory usage, and circuit breaker state. It is
// always reported as "healthy" because an open circuit breaker falls back
// to unthrottled passthrough rather than blocking traffic.
func (h *HealthHandler) checkRateLimiter(ctx context.Context) CheckStatus {
	info := RateLimiterHealthInfo{CircuitBreaker: "not_configured"}

	if h.RateLimiterStore != nil {
		if keyCount, err := h.RateLimiterStore.KeyCount(ctx); err == nil {
			info.ActiveKeys = keyCount
		}
		if memUsage, err := h.RateLimiterStore.MemoryUsage(ctx); err == nil {
			info.MemoryBytes = memUsage
		}
	}

	if h.RateLimiterBreaker != nil {
		info.CircuitBreaker = h.RateLimiterBreaker.State().String()
	}

	return CheckStatus{
		Status:  "healthy",
		Details: map[string]interface{}{"outbound": info},
	}
}

// ReadyHandler handles Kubernetes readiness probe requests.
// It checks if the subscription store connection is established and ready.
// A process with no subscription store (a node server) is always ready.
type ReadyHandler struct {
	DB *sql.DB
}

// ServeHTTP performs readiness checks and returns 200 OK if ready,
// or 503 Service Unavailable if the subscription store is configured but not ready.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			http.Error(w, "subscription store not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ready")); err != nil {
		log.Printf("ready: failed to write response: %v", err)
	}
}

// LiveHandler handles Kubernetes liveness probe requests.
// It performs a lightweight check to verify the process is responsive.
type LiveHandler struct{}

// ServeHTTP performs a simple liveness check and always returns 200 OK
// if the process is running and able to respond.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		log.Printf("alive: failed to write response: %v", err)
	}
}
