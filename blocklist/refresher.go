package blocklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caasmo/gatekeeper/config"
	"golang.org/x/sync/singleflight"
)

// flightKey is shared by every trigger so that at most one source read runs
// at any moment.
const flightKey = "blocklist"

// Refresher coordinates refreshes of a Cache from a Source.
//
// Requests call Ensure, which refreshes only when the cache is stale. The
// background loop, the file watcher and SIGHUP call Force. All of them join
// the same flight.
type Refresher struct {
	name     string
	cache    *Cache
	source   Source
	ttl      time.Duration
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *Metrics

	group singleflight.Group

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownDone chan struct{}
}

// NewRefresher takes its timings from cfg. metrics may be nil.
func NewRefresher(cache *Cache, source Source, cfg config.Blocklist, logger *slog.Logger, metrics *Metrics) (*Refresher, error) {
	if cache == nil {
		return nil, fmt.Errorf("refresher: cache cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("refresher: source cannot be nil")
	}
	if cfg.CacheTTL.Duration <= 0 || cfg.RefreshTimeout.Duration <= 0 {
		return nil, fmt.Errorf("refresher: cache ttl and refresh timeout must be positive")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		name:         "BlocklistRefresher",
		cache:        cache,
		source:       source,
		ttl:          cfg.CacheTTL.Duration,
		interval:     cfg.EffectiveRefreshInterval(),
		timeout:      cfg.RefreshTimeout.Duration,
		logger:       logger.With("daemon_component", "BlocklistRefresher"),
		metrics:      metrics,
		ctx:          ctx,
		cancel:       cancel,
		shutdownDone: make(chan struct{}),
	}, nil
}

// Ensure refreshes the cache if it is stale and waits at most the refresh
// timeout for the result. On error the cache still holds its previous set and
// the caller proceeds with it.
func (r *Refresher) Ensure(ctx context.Context) error {
	if !r.cache.IsStale(r.ttl) {
		return nil
	}
	return r.wait(ctx, r.group.DoChan(flightKey, func() (any, error) {
		// A flight that finished while this one was queued may have
		// refreshed already.
		if !r.cache.IsStale(r.ttl) {
			return nil, nil
		}
		return nil, r.refresh()
	}))
}

// Force refreshes regardless of staleness, or joins the running flight.
func (r *Refresher) Force(ctx context.Context) error {
	return r.wait(ctx, r.group.DoChan(flightKey, func() (any, error) {
		return nil, r.refresh()
	}))
}

func (r *Refresher) wait(ctx context.Context, ch <-chan singleflight.Result) error {
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.Err
	case <-timer.C:
		return ErrRefreshTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refresh runs inside the flight. Its context is detached from any caller so
// that a client disconnect does not abort a read other requests wait on.
func (r *Refresher) refresh() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	outcome, err := r.cache.Refresh(ctx, r.source)
	took := time.Since(start)
	r.metrics.observeRefresh(outcome, took, r.cache)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrRefreshTimeout) {
			err = fmt.Errorf("%w: %w", ErrRefreshTimeout, err)
		}
		r.logger.Warn("failed to refresh banned IPs, keeping previous set",
			"source", r.source.String(),
			"outcome", string(outcome),
			"entries", r.cache.Len(),
			"error", err)
		return err
	}

	r.logger.Debug("banned IPs refreshed",
		"source", r.source.String(),
		"outcome", string(outcome),
		"entries", r.cache.Len(),
		"took", took)
	return nil
}

// Name returns the constant name of this daemon type.
func (r *Refresher) Name() string {
	return r.name
}

// Start launches the periodic refresh loop.
func (r *Refresher) Start() error {
	r.logger.Info("Starting periodic blocklist refresh", "interval", r.interval, "source", r.source.String())
	go r.loop()
	return nil
}

// Stop ends the loop. A flight in progress finishes on its own timeout.
func (r *Refresher) Stop(ctx context.Context) error {
	r.logger.Info("Stopping BlocklistRefresher")
	r.cancel()

	select {
	case <-r.shutdownDone:
		r.logger.Info("BlocklistRefresher stopped gracefully.")
		return nil
	case <-ctx.Done():
		r.logger.Error("BlocklistRefresher shutdown timed out", "error", ctx.Err())
		return ctx.Err()
	}
}

func (r *Refresher) loop() {
	defer close(r.shutdownDone)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			// Failures are logged inside the flight.
			_ = r.Force(r.ctx)
		}
	}
}
