package gatekeeper

import (
	"time"

	"github.com/caasmo/gatekeeper/server"
	"github.com/prometheus/client_golang/prometheus"
)

type Option func(*initializer)

type initializer struct {
	now                   func() time.Time
	registry              *prometheus.Registry
	skipRuntimeCollectors bool
	reload                func() error
	daemons               []server.Daemon
}

// WithRegistry sets the registry every collector is registered on and
// /metrics exposes. The Go and process collectors are not added to it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(i *initializer) {
		if reg == nil {
			panic("registry cannot be nil")
		}
		i.registry = reg
		i.skipRuntimeCollectors = true
	}
}

// WithClock sets the time source of the blocklist cache.
func WithClock(now func() time.Time) Option {
	return func(i *initializer) {
		i.now = now
	}
}

// WithConfigReload sets the function run on SIGHUP before the forced
// blocklist refresh.
func WithConfigReload(reload func() error) Option {
	return func(i *initializer) {
		i.reload = reload
	}
}

// WithDaemon adds a daemon started and stopped with the server, after the
// blocklist daemons.
func WithDaemon(d server.Daemon) Option {
	return func(i *initializer) {
		i.daemons = append(i.daemons, d)
	}
}
