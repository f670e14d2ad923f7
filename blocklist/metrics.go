package blocklist

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the blocklist collectors. A nil *Metrics records nothing.
type Metrics struct {
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	entries         prometheus.Gauge
	lastRefresh     prometheus.Gauge
	decisions       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_blocklist_refresh_total",
				Help: "Blocklist refresh attempts by result.",
			},
			[]string{"result"},
		),
		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gatekeeper_blocklist_refresh_duration_seconds",
				Help:    "Time spent reading the blocklist source.",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2, 5},
			},
		),
		entries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatekeeper_blocklist_entries",
				Help: "Number of entries in the resident banned IP set.",
			},
		),
		lastRefresh: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatekeeper_blocklist_last_refresh_timestamp_seconds",
				Help: "Unix time of the last refresh that advanced the cache.",
			},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_decisions_total",
				Help: "Access decisions by result.",
			},
			[]string{"decision"},
		),
	}

	reg.MustRegister(m.refreshes, m.refreshDuration, m.entries, m.lastRefresh, m.decisions)

	// Expose every label value from the start.
	for _, o := range []Outcome{OutcomeLoaded, OutcomeMissing, OutcomeFailed, OutcomeTimeout} {
		m.refreshes.WithLabelValues(string(o))
	}
	m.decisions.WithLabelValues("allow")
	m.decisions.WithLabelValues("block")

	return m
}

func (m *Metrics) observeRefresh(outcome Outcome, took time.Duration, cache *Cache) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(string(outcome)).Inc()
	m.refreshDuration.Observe(took.Seconds())
	m.entries.Set(float64(cache.Len()))
	if at := cache.RefreshedAt(); !at.IsZero() {
		m.lastRefresh.Set(float64(at.UnixNano()) / 1e9)
	}
}

// DecisionsCollector exposes the decision counter, for tests and custom
// registries.
func (m *Metrics) DecisionsCollector() prometheus.Collector {
	return m.decisions
}

// ObserveDecision counts one access decision, "allow" or "block".
func (m *Metrics) ObserveDecision(decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}
