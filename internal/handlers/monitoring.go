package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/chatrelay/internal/monitoring"
	"github.com/charlesng35/chatrelay/internal/realtime"
	"github.com/charlesng35/chatrelay/pkg/response"
)

// HubStats reports realtime hub counters.
type HubStats interface {
	Stats() realtime.Stats
}

// MonitoringHandler surfaces an operational summary: hub counts and the
// history of maintenance jobs.
type MonitoringHandler struct {
	module          *monitoring.Module
	hub             HubStats
	metricsEndpoint string
}

// NewMonitoringHandler constructs a monitoring handler. Returns nil when
// monitoring is disabled.
func NewMonitoringHandler(module *monitoring.Module, hub HubStats, metricsEndpoint string) *MonitoringHandler {
	if module == nil {
		return nil
	}
	return &MonitoringHandler{module: module, hub: hub, metricsEndpoint: metricsEndpoint}
}

// Summary handles GET /api/monitoring/summary.
func (h *MonitoringHandler) Summary(c *gin.Context) {
	payload := gin.H{
		"maintenance": h.module.MaintenanceJobs(),
		"prometheus": gin.H{
			"enabled":  h.metricsEndpoint != "",
			"endpoint": h.metricsEndpoint,
		},
	}
	if h.hub != nil {
		payload["realtime"] = h.hub.Stats()
	}

	response.Success(c, http.StatusOK, payload)
}
