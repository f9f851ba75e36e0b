package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider reports service statistics for GET /stats.
type StatsProvider interface {
	GetStats() map[string]any
}

type statsHandler struct {
	provider StatsProvider
	started  time.Time
}

// handleStats serves the service statistics plus the API uptime.
func (h *statsHandler) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.provider.GetStats()
	out := make(map[string]any, len(stats)+1)
	maps.Copy(out, stats)
	out["uptimeSeconds"] = int64(time.Since(h.started).Seconds())
	writeJSON(w, http.StatusOK, out)
}
