package prerouter

import (
	"net/http"
	"strconv"

	"github.com/caasmo/gatekeeper/core"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	requestsMetricName = "http_server_requests_total"
	requestsMetricHelp = "Total number of HTTP requests handled by the server, labeled by status code."
)

// Metrics counts requests by response status. It relies on Recorder
// running earlier in the chain.
type Metrics struct {
	app           *core.App
	requestsTotal *prometheus.CounterVec
}

// NewMetrics registers the request counter on reg and panics if that fails,
// like prometheus.MustRegister.
func NewMetrics(app *core.App, reg prometheus.Registerer) *Metrics {
	counterVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: requestsMetricName,
			Help: requestsMetricHelp,
		},
		[]string{"code"},
	)
	if err := reg.Register(counterVec); err != nil {
		panic("metrics: failed to register requests_total counter vec: " + err.Error())
	}

	return &Metrics{
		app:           app,
		requestsTotal: counterVec,
	}
}

func (m *Metrics) Execute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.app.Config().Metrics.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		rec, ok := w.(*core.ResponseRecorder)
		if !ok {
			m.app.Logger().Error("metrics middleware: expected core.ResponseRecorder but got different type")
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(rec, r)

		m.requestsTotal.WithLabelValues(strconv.Itoa(rec.Status)).Inc()
	})
}
