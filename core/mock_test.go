package core

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/caasmo/gatekeeper/config"
	"github.com/prometheus/client_golang/prometheus"
)

type mockBanned struct {
	ips         map[string]bool
	refreshedAt time.Time
}

func (m *mockBanned) Contains(ip string) bool { return m.ips[ip] }
func (m *mockBanned) Len() int                { return len(m.ips) }
func (m *mockBanned) RefreshedAt() time.Time  { return m.refreshedAt }

type mockRefresher struct {
	calls int
	err   error
}

func (m *mockRefresher) Ensure(ctx context.Context) error {
	m.calls++
	return m.err
}

// newTestApp builds an App over mocks with the default config, adjusted by
// mutate when not nil.
func newTestApp(mutate func(cfg *config.Config), banned ...string) (*App, *mockRefresher) {
	cfg := config.NewDefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}

	ips := make(map[string]bool, len(banned))
	for _, ip := range banned {
		ips[ip] = true
	}
	refresher := &mockRefresher{}

	app, err := NewApp(
		WithConfigProvider(config.NewProvider(cfg)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithBanned(&mockBanned{ips: ips}),
		WithRefresher(refresher),
		WithGatherer(prometheus.NewRegistry()),
	)
	if err != nil {
		panic(err)
	}
	return app, refresher
}
