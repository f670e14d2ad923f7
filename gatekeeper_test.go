package gatekeeper

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caasmo/gatekeeper/config"
	"github.com/prometheus/client_golang/prometheus"
)

// --- Test Helpers ---

// newTestLogger creates a silent logger for tests to avoid noisy output.
func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testGatekeeper struct {
	*Gatekeeper
	path  string
	clock *testClock
}

func writeBlocklist(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write blocklist: %v", err)
	}
}

func newTestGatekeeper(t *testing.T, content string, mutate func(cfg *config.Config), opts ...Option) *testGatekeeper {
	t.Helper()
	path := filepath.Join(t.TempDir(), "banned-ips.txt")
	writeBlocklist(t, path, content)

	cfg := config.NewDefaultConfig()
	cfg.Blocklist.File = path
	if mutate != nil {
		mutate(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	clock := &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithRegistry(prometheus.NewRegistry()), WithClock(clock.Now)}, opts...)

	g, err := New(config.NewProvider(cfg), newTestLogger(), opts...)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return &testGatekeeper{Gatekeeper: g, path: path, clock: clock}
}

func (g *testGatekeeper) do(method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	g.Handler.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestGatekeeper_Scenario(t *testing.T) {
	g := newTestGatekeeper(t, "9.9.9.9 \n", nil)

	blocked := g.do(http.MethodGet, "/", map[string]string{"cf-connecting-ip": "9.9.9.9"})
	if blocked.Code != http.StatusForbidden {
		t.Errorf("banned IP status = %d, want %d", blocked.Code, http.StatusForbidden)
	}

	allowed := g.do(http.MethodGet, "/", map[string]string{"cf-connecting-ip": "1.1.1.1"})
	if allowed.Code != http.StatusOK {
		t.Errorf("allowed IP status = %d, want %d", allowed.Code, http.StatusOK)
	}
	if allowed.Body.Len() != 0 {
		t.Errorf("allowed body = %q, want empty", allowed.Body.String())
	}

	health := g.do(http.MethodGet, "/health", nil)
	if health.Code != http.StatusOK {
		t.Fatalf("health status = %d", health.Code)
	}
	if body := strings.TrimSpace(health.Body.String()); body != `{"status":"ok","banned_ip_count":1}` {
		t.Errorf("health body = %s", body)
	}
}

func TestGatekeeper_AnyMethodAnyPath(t *testing.T) {
	g := newTestGatekeeper(t, "9.9.9.9\n", nil)

	testCases := []struct {
		method string
		path   string
		ip     string
		want   int
	}{
		{http.MethodGet, "/", "1.1.1.1", http.StatusOK},
		{http.MethodPost, "/api/v1/items", "1.1.1.1", http.StatusOK},
		{http.MethodDelete, "/deep/path/", "1.1.1.1", http.StatusOK},
		{http.MethodOptions, "/health", "1.1.1.1", http.StatusOK},
		{http.MethodPut, "/health", "9.9.9.9", http.StatusForbidden},
		{http.MethodGet, "/anything", "9.9.9.9", http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path+" "+tc.ip, func(t *testing.T) {
			rec := g.do(tc.method, tc.path, map[string]string{"X-Forwarded-For": tc.ip})
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestGatekeeper_HealthBypassesDecision(t *testing.T) {
	g := newTestGatekeeper(t, "9.9.9.9\n", nil)

	rec := g.do(http.MethodGet, "/health", map[string]string{"cf-connecting-ip": "9.9.9.9"})
	if rec.Code != http.StatusOK {
		t.Errorf("health for banned IP status = %d, want %d", rec.Code, http.StatusOK)
	}

	head := g.do(http.MethodHead, "/health", nil)
	if head.Code != http.StatusOK {
		t.Errorf("HEAD /health status = %d, want %d", head.Code, http.StatusOK)
	}
}

func TestGatekeeper_RefreshAfterTTL(t *testing.T) {
	g := newTestGatekeeper(t, "9.9.9.9\n", nil)
	headers := map[string]string{"cf-connecting-ip": "2.2.2.2"}

	if rec := g.do(http.MethodGet, "/", headers); rec.Code != http.StatusOK {
		t.Fatalf("status before change = %d, want 200", rec.Code)
	}

	writeBlocklist(t, g.path, "9.9.9.9\n2.2.2.2\n")

	// Still fresh: the resident set answers.
	if rec := g.do(http.MethodGet, "/", headers); rec.Code != http.StatusOK {
		t.Errorf("status while fresh = %d, want 200", rec.Code)
	}

	g.clock.Advance(6 * time.Second)
	if rec := g.do(http.MethodGet, "/", headers); rec.Code != http.StatusForbidden {
		t.Errorf("status after TTL = %d, want 403", rec.Code)
	}
}

func TestGatekeeper_MissingFileAtStartup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.txt")
	cfg := config.NewDefaultConfig()
	cfg.Blocklist.File = path
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	g, err := New(config.NewProvider(cfg), newTestLogger(), WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	if g.Cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Cache.Len())
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("cf-connecting-ip", "9.9.9.9")
	g.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestGatekeeper_ReloadForcesRefresh(t *testing.T) {
	g := newTestGatekeeper(t, "9.9.9.9\n", nil)

	writeBlocklist(t, g.path, "3.3.3.3\n")

	reloadErr := errors.New("config file broken")
	reload := reloadFunc(func() error { return reloadErr }, g.Refresher, newTestLogger())
	if err := reload(); !errors.Is(err, reloadErr) {
		t.Errorf("reload() error = %v, want %v", err, reloadErr)
	}

	// The refresh ran although the config reload failed, and without the
	// clock moving past the TTL.
	if !g.Cache.Contains("3.3.3.3") || g.Cache.Contains("9.9.9.9") {
		t.Errorf("cache entries = %v after forced refresh", g.Cache.Snapshot().Entries())
	}
}

func TestGatekeeper_MetricsEndpoint(t *testing.T) {
	g := newTestGatekeeper(t, "9.9.9.9\n", nil)
	g.do(http.MethodGet, "/", map[string]string{"cf-connecting-ip": "9.9.9.9"})
	g.do(http.MethodGet, "/", map[string]string{"cf-connecting-ip": "1.1.1.1"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	g.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`gatekeeper_decisions_total{decision="block"} 1`,
		`gatekeeper_decisions_total{decision="allow"} 1`,
		`gatekeeper_blocklist_entries 1`,
		`gatekeeper_blocklist_refresh_total{result="ok"} 1`,
		`http_server_requests_total{code="403"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	// Not in the allow list.
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "203.0.113.7:40000"
	rec = httptest.NewRecorder()
	g.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status for foreign peer = %d, want 404", rec.Code)
	}
}

func TestGatekeeper_MetricsDisabledRoutesToDecision(t *testing.T) {
	g := newTestGatekeeper(t, "9.9.9.9\n", func(cfg *config.Config) {
		cfg.Metrics.Enabled = false
	})

	rec := g.do(http.MethodGet, "/metrics", map[string]string{"cf-connecting-ip": "9.9.9.9"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestGatekeeper_StatsEndpoint(t *testing.T) {
	g := newTestGatekeeper(t, "9.9.9.9\n8.8.4.4\n", nil)
	for i := 0; i < 3; i++ {
		g.do(http.MethodGet, "/", map[string]string{"cf-connecting-ip": "9.9.9.9"})
	}
	g.do(http.MethodGet, "/", map[string]string{"cf-connecting-ip": "8.8.4.4"})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.RemoteAddr = "[::1]:40000"
	rec := httptest.NewRecorder()
	g.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got struct {
		TopBlocked []struct {
			IP    string `json:"ip"`
			Count uint32 `json:"count"`
		} `json:"top_blocked"`
		BlockedTotal  uint64 `json:"blocked_total"`
		BannedIpCount int    `json:"banned_ip_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid stats JSON %q: %v", rec.Body.String(), err)
	}
	if got.BlockedTotal != 4 || got.BannedIpCount != 2 {
		t.Errorf("stats = %+v", got)
	}
	if len(got.TopBlocked) == 0 || got.TopBlocked[0].IP != "9.9.9.9" || got.TopBlocked[0].Count != 3 {
		t.Errorf("top_blocked = %+v, want 9.9.9.9 first with 3", got.TopBlocked)
	}
}

func TestNew_NilProvider(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("expected error for nil provider")
	}
}
