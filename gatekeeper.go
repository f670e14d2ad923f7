package gatekeeper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/caasmo/gatekeeper/blocklist"
	"github.com/caasmo/gatekeeper/config"
	"github.com/caasmo/gatekeeper/core"
	"github.com/caasmo/gatekeeper/router/httprouter"
	"github.com/caasmo/gatekeeper/server"
	"github.com/caasmo/gatekeeper/topk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Gatekeeper is the assembled service: the blocklist cache and its refresh
// coordinator, the HTTP handler in front of them and the server running it.
type Gatekeeper struct {
	App       *core.App
	Cache     *blocklist.Cache
	Refresher *blocklist.Refresher
	Handler   http.Handler
	Server    *server.Server
}

// New wires every component from the configuration held by provider and
// performs the initial blocklist refresh. A failed initial refresh is logged
// and the service starts with an empty set; only construction errors are
// returned.
func New(provider *config.Provider, logger *slog.Logger, opts ...Option) (*Gatekeeper, error) {
	if provider == nil {
		return nil, fmt.Errorf("gatekeeper: config provider cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ini := &initializer{
		now:      time.Now,
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(ini)
	}

	cfg := provider.Get()
	reg := ini.registry
	if !ini.skipRuntimeCollectors {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	metrics := blocklist.NewMetrics(reg)
	cache := blocklist.NewCache(
		blocklist.WithClock(ini.now),
		blocklist.WithMissingPolicy(cfg.Blocklist.MissingPolicy),
		blocklist.WithLogger(logger),
	)
	source := blocklist.NewFileSource(cfg.Blocklist.File)

	refresher, err := blocklist.NewRefresher(cache, source, cfg.Blocklist, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("gatekeeper: %w", err)
	}

	appOpts := []core.Option{
		core.WithConfigProvider(provider),
		core.WithLogger(logger),
		core.WithBanned(cache),
		core.WithRefresher(refresher),
		core.WithDecisions(metrics),
		core.WithGatherer(reg),
	}
	if cfg.Stats.Enabled {
		appOpts = append(appOpts, core.WithOffenders(topk.New(topk.Params{
			K:          cfg.Stats.K,
			WindowSize: cfg.Stats.WindowSize,
			Width:      cfg.Stats.Width,
			Depth:      cfg.Stats.Depth,
			TickSize:   cfg.Stats.TickSize,
		})))
	}

	app, err := core.NewApp(appOpts...)
	if err != nil {
		return nil, fmt.Errorf("gatekeeper: %w", err)
	}

	handler := route(cfg, app, httprouter.New(), reg)

	// Serve nothing until the first load has been attempted.
	if err := refresher.Force(context.Background()); err != nil {
		logger.Error("initial blocklist refresh failed", "file", cfg.Blocklist.File, "error", err)
	}
	logger.Info("blocklist loaded", "file", cfg.Blocklist.File, "entries", cache.Len())

	srv := server.NewServer(provider, handler, logger, reloadFunc(ini.reload, refresher, logger))
	srv.AddDaemon(refresher)

	if cfg.Blocklist.WatchFile {
		watcher, err := blocklist.NewWatcher(cfg.Blocklist.File, refresher, logger)
		if err != nil {
			return nil, fmt.Errorf("gatekeeper: %w", err)
		}
		srv.AddDaemon(watcher)
	}
	for _, d := range ini.daemons {
		srv.AddDaemon(d)
	}

	return &Gatekeeper{
		App:       app,
		Cache:     cache,
		Refresher: refresher,
		Handler:   handler,
		Server:    srv,
	}, nil
}

// reloadFunc runs on SIGHUP: the optional config reload, then a forced
// blocklist refresh. The refresh runs even when the reload fails.
func reloadFunc(reload func() error, refresher *blocklist.Refresher, logger *slog.Logger) func() error {
	return func() error {
		var reloadErr error
		if reload != nil {
			reloadErr = reload()
		}
		if err := refresher.Force(context.Background()); err != nil {
			logger.Error("forced blocklist refresh failed", "error", err)
			return err
		}
		return reloadErr
	}
}
