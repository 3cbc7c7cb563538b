package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"tunebox/internal/capacity"
	"tunebox/internal/database"
	"tunebox/internal/metrics"
)

// degradedThreshold is the DB round trip above which health reports degraded
const degradedThreshold = 200 * time.Millisecond

// HealthStatus represents the overall health status response
type HealthStatus struct {
	Status  string                 `json:"status"`
	DB      DependencyHealthStatus `json:"db"`
	Staging DependencyHealthStatus `json:"staging"`
}

// DependencyHealthStatus represents the health status of a dependency
type DependencyHealthStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	dbManager  *database.DatabaseManager
	probe      *capacity.Probe
	stagingDir string
	metrics    *metrics.Metrics
}

// NewHealthHandler creates a new health handler. A nil probe skips the
// staging disk check.
func NewHealthHandler(dbManager *database.DatabaseManager, probe *capacity.Probe, stagingDir string, m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{
		dbManager:  dbManager,
		probe:      probe,
		stagingDir: stagingDir,
		metrics:    m,
	}
}

// HealthCheck handles the health check endpoint at /healthz
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	dbHealth := h.checkDBHealth(c.UserContext())
	h.metrics.SetHealth("db", dbHealth.Status != "error")

	stagingHealth := h.checkStagingHealth()
	h.metrics.SetHealth("staging", stagingHealth.Status != "error")

	status := HealthStatus{Status: "ok", DB: dbHealth, Staging: stagingHealth}
	switch {
	case dbHealth.Status == "error" || stagingHealth.Status == "error":
		status.Status = "error"
	case dbHealth.Status == "degraded" || stagingHealth.Status == "degraded":
		status.Status = "degraded"
	}

	httpStatus := http.StatusOK
	if status.Status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(httpStatus).JSON(status)
}

// checkDBHealth pings the database within a short deadline
func (h *HealthHandler) checkDBHealth(ctx context.Context) DependencyHealthStatus {
	if h.dbManager == nil || h.dbManager.GetSQLDB() == nil {
		return DependencyHealthStatus{Status: "error", Message: "Database not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	latency, err := h.dbManager.Ping(ctx)
	if err != nil {
		return DependencyHealthStatus{
			Status:    "error",
			LatencyMs: latency.Milliseconds(),
			Message:   err.Error(),
		}
	}

	if latency > degradedThreshold {
		return DependencyHealthStatus{
			Status:    "degraded",
			LatencyMs: latency.Milliseconds(),
			Message:   "Database response time is above threshold",
		}
	}

	return DependencyHealthStatus{
		Status:    "ok",
		LatencyMs: latency.Milliseconds(),
		Message:   "Database connection successful",
	}
}

// checkStagingHealth reports a nearly full staging disk as degraded, since
// every upload passes through it
func (h *HealthHandler) checkStagingHealth() DependencyHealthStatus {
	if h.probe == nil {
		return DependencyHealthStatus{Status: "ok", Message: "Staging disk check disabled"}
	}

	start := time.Now()
	usage, err := h.probe.GetUsage(h.stagingDir)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return DependencyHealthStatus{Status: "error", LatencyMs: latency, Message: err.Error()}
	}

	switch usage.Status {
	case capacity.StatusOK:
		return DependencyHealthStatus{Status: "ok", LatencyMs: latency}
	default:
		return DependencyHealthStatus{
			Status:    "degraded",
			LatencyMs: latency,
			Message:   fmt.Sprintf("Staging disk %.1f%% used (%s)", usage.UsedPercent, usage.Status),
		}
	}
}
