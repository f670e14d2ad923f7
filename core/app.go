package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/caasmo/gatekeeper/config"
	"github.com/caasmo/gatekeeper/topk"
	"github.com/prometheus/client_golang/prometheus"
)

// BannedSet is the read side of the banned IP cache.
type BannedSet interface {
	Contains(ip string) bool
	Len() int
	RefreshedAt() time.Time
}

// Refresher brings the banned set up to date when it is stale.
type Refresher interface {
	Ensure(ctx context.Context) error
}

// DecisionObserver counts access decisions.
type DecisionObserver interface {
	ObserveDecision(decision string)
}

// App is the application wide context shared by handlers and middleware.
// It owns no goroutines; the root package builds it and hands it around.
type App struct {
	configProvider *config.Provider
	logger         *slog.Logger
	banned         BannedSet
	refresher      Refresher
	decisions      DecisionObserver
	offenders      *topk.Offenders
	gatherer       prometheus.Gatherer
}

func (a *App) Logger() *slog.Logger {
	return a.logger
}

func (a *App) SetLogger(l *slog.Logger) {
	a.logger = l
}

func (a *App) Config() *config.Config {
	return a.configProvider.Get()
}

func (a *App) SetConfigProvider(provider *config.Provider) {
	a.configProvider = provider
}

func (a *App) Banned() BannedSet {
	return a.banned
}

func (a *App) SetBanned(b BannedSet) {
	a.banned = b
}

func (a *App) Refresher() Refresher {
	return a.refresher
}

func (a *App) SetRefresher(r Refresher) {
	a.refresher = r
}

// Decisions may return nil when metrics are not wired.
func (a *App) Decisions() DecisionObserver {
	return a.decisions
}

func (a *App) SetDecisions(d DecisionObserver) {
	a.decisions = d
}

// Offenders may return nil when stats are disabled.
func (a *App) Offenders() *topk.Offenders {
	return a.offenders
}

func (a *App) SetOffenders(o *topk.Offenders) {
	a.offenders = o
}

func (a *App) Gatherer() prometheus.Gatherer {
	return a.gatherer
}

func (a *App) SetGatherer(g prometheus.Gatherer) {
	a.gatherer = g
}
