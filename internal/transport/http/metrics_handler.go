package http

import (
	"net/http"

	"github.com/go-chi/render"
)

// StatsSource reports counters of a running component.
type StatsSource interface {
	GetStats() map[string]interface{}
}

// HubStatsSource reports websocket hub counters.
type HubStatsSource interface {
	GetHubMetrics() map[string]interface{}
}

// MetricsHandler serves in-process statistics as JSON. Prometheus metrics
// are served separately at /metrics.
type MetricsHandler struct {
	sessions StatsSource
	hub      HubStatsSource
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(sessions StatsSource, hub HubStatsSource) *MetricsHandler {
	return &MetricsHandler{sessions: sessions, hub: hub}
}

// GetStats handles GET /api/stats
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{}
	if h.sessions != nil {
		response["sessions"] = h.sessions.GetStats()
	}
	if h.hub != nil {
		response["websocket"] = h.hub.GetHubMetrics()
	}
	render.JSON(w, r, response)
}
