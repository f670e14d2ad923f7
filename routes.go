package gatekeeper

import (
	"net/http"

	"github.com/caasmo/gatekeeper/config"
	"github.com/caasmo/gatekeeper/core"
	"github.com/caasmo/gatekeeper/core/prerouter"
	"github.com/caasmo/gatekeeper/router"
	"github.com/prometheus/client_golang/prometheus"
)

// route registers the fixed endpoints and sends every other request through
// the access decision. The returned handler records, logs and counts all
// requests.
func route(cfg *config.Config, app *core.App, r router.Router, reg prometheus.Registerer) http.Handler {
	r.HandleFunc(http.MethodGet, "/health", app.HealthHandler)
	r.HandleFunc(http.MethodHead, "/health", app.HealthHandler)

	if cfg.Metrics.Enabled {
		r.Handle(http.MethodGet, cfg.Metrics.Endpoint, app.MetricsHandler())
	}
	if cfg.Stats.Enabled {
		r.HandleFunc(http.MethodGet, cfg.Stats.Endpoint, app.StatsHandler)
	}

	r.NotFound(router.NewChain(http.HandlerFunc(app.PassHandler)).
		WithMiddleware(prerouter.NewBlockIp(app).Execute).
		Handler())

	return router.NewChain(r).
		WithMiddleware(
			prerouter.NewRecorder(app).Execute,
			prerouter.NewRequestLog(app).Execute,
			prerouter.NewMetrics(app, reg).Execute,
		).
		Handler()
}
