package core

import (
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the service registry in the Prometheus text format.
// Endpoint: GET /metrics
// Only peers listed in Metrics.AllowedIPs get an answer; everybody else sees
// a 404, as if the endpoint did not exist.
func (a *App) MetricsHandler() http.Handler {
	prom := promhttp.HandlerFor(a.Gatherer(), promhttp.HandlerOpts{})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := a.Config().Metrics
		if !cfg.Enabled {
			writeJsonError(w, errorNotFound)
			return
		}
		if !a.peerAllowed(w, r, cfg.AllowedIPs) {
			return
		}
		prom.ServeHTTP(w, r)
	})
}

// peerAllowed writes the error response itself when it returns false.
func (a *App) peerAllowed(w http.ResponseWriter, r *http.Request, allowed []string) bool {
	peer := PeerIP(r)
	if peer == "" {
		writeJsonError(w, errorInvalidRequest)
		return false
	}
	// Exact match only.
	if !slices.Contains(allowed, peer) {
		writeJsonError(w, errorNotFound)
		return false
	}
	return true
}
