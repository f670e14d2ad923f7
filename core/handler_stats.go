package core

import (
	"net/http"
	"time"

	"github.com/caasmo/gatekeeper/topk"
)

type statsResponse struct {
	TopBlocked    []topk.Offender `json:"top_blocked"`
	BlockedTotal  uint64          `json:"blocked_total"`
	BannedIpCount int             `json:"banned_ip_count"`
	LastRefresh   *time.Time      `json:"last_refresh"`
}

// StatsHandler lists the IPs the gate blocked most often recently.
// Endpoint: GET /stats
// Shares the metrics allow list since it exposes client addresses.
func (a *App) StatsHandler(w http.ResponseWriter, r *http.Request) {
	offenders := a.Offenders()
	if !a.Config().Stats.Enabled || offenders == nil {
		writeJsonError(w, errorNotFound)
		return
	}
	if !a.peerAllowed(w, r, a.Config().Metrics.AllowedIPs) {
		return
	}

	resp := statsResponse{
		TopBlocked:    offenders.Top(),
		BlockedTotal:  offenders.Total(),
		BannedIpCount: a.Banned().Len(),
	}
	if at := a.Banned().RefreshedAt(); !at.IsZero() {
		at = at.UTC()
		resp.LastRefresh = &at
	}
	writeJson(w, http.StatusOK, resp)
}
