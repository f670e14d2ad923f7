package core

import (
	"net/http"
)

type healthResponse struct {
	Status        string `json:"status"`
	BannedIpCount int    `json:"banned_ip_count"`
}

// HealthHandler reports liveness and the size of the resident banned set.
// Endpoint: GET|HEAD /health
// It never triggers a refresh and is not subject to the access decision.
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, healthResponse{
		Status:        "ok",
		BannedIpCount: a.Banned().Len(),
	})
}
