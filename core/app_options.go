package core

import (
	"fmt"
	"log/slog"

	"github.com/caasmo/gatekeeper/config"
	"github.com/caasmo/gatekeeper/topk"
	"github.com/prometheus/client_golang/prometheus"
)

type Option func(*App)

// NewApp applies the options and checks the required dependencies.
func NewApp(opts ...Option) (*App, error) {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}

	if a.configProvider == nil {
		return nil, fmt.Errorf("config provider is required (use WithConfigProvider)")
	}
	if a.banned == nil {
		return nil, fmt.Errorf("banned set is required (use WithBanned)")
	}
	if a.refresher == nil {
		return nil, fmt.Errorf("refresher is required (use WithRefresher)")
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a, nil
}

// WithConfigProvider sets the application's configuration provider.
func WithConfigProvider(p *config.Provider) Option {
	return func(a *App) {
		a.configProvider = p
	}
}

// WithLogger sets the logger implementation
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

func WithBanned(b BannedSet) Option {
	return func(a *App) {
		a.banned = b
	}
}

func WithRefresher(r Refresher) Option {
	return func(a *App) {
		a.refresher = r
	}
}

func WithDecisions(d DecisionObserver) Option {
	return func(a *App) {
		a.decisions = d
	}
}

func WithOffenders(o *topk.Offenders) Option {
	return func(a *App) {
		a.offenders = o
	}
}

// WithGatherer sets the registry served on the metrics endpoint.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(a *App) {
		a.gatherer = g
	}
}
