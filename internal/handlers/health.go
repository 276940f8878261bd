package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/chatrelay/internal/monitoring"
)

// HealthHandler renders liveness and readiness reports.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

// NewHealthHandler constructs a HealthHandler. A nil manager reports health
// as disabled.
func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// Summary reports the aggregated readiness status without per-check details.
func (h *HealthHandler) Summary(c *gin.Context) {
	if h.disabled(c) {
		return
	}
	report := h.manager.EvaluateReadiness(c.Request.Context())
	c.JSON(statusFor(report), gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checked_at": time.Now().UTC(),
	})
}

// Live reports liveness checks.
func (h *HealthHandler) Live(c *gin.Context) {
	if h.disabled(c) {
		return
	}
	writeHealthReport(c, h.manager.EvaluateLiveness(c.Request.Context()))
}

// Ready reports readiness checks.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.disabled(c) {
		return
	}
	writeHealthReport(c, h.manager.EvaluateReadiness(c.Request.Context()))
}

func (h *HealthHandler) disabled(c *gin.Context) bool {
	if h != nil && h.manager != nil {
		return false
	}
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
	return true
}

func writeHealthReport(c *gin.Context, report monitoring.HealthReport) {
	c.JSON(statusFor(report), gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checks":     report.Checks,
		"checked_at": time.Now().UTC(),
	})
}

func statusFor(report monitoring.HealthReport) int {
	if !report.Success {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
