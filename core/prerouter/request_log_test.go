package prerouter

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caasmo/gatekeeper/config"
	"github.com/caasmo/gatekeeper/core"
)

// memoryHandler is a slog.Handler that writes JSON records to an in-memory
// buffer, one per line.
type memoryHandler struct {
	b *bytes.Buffer
	h slog.Handler
}

func newMemoryHandler(b *bytes.Buffer) *memoryHandler {
	return &memoryHandler{
		b: b,
		h: slog.NewJSONHandler(b, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
}

func (h *memoryHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *memoryHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.h.Handle(ctx, r)
}

func (h *memoryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &memoryHandler{b: h.b, h: h.h.WithAttrs(attrs)}
}

func (h *memoryHandler) WithGroup(name string) slog.Handler {
	return &memoryHandler{b: h.b, h: h.h.WithGroup(name)}
}

// records parses every logged line.
func records(t *testing.T, b *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

// findRecord returns the first record with the given message.
func findRecord(t *testing.T, b *bytes.Buffer, msg string) map[string]any {
	t.Helper()
	for _, rec := range records(t, b) {
		if rec["msg"] == msg {
			return rec
		}
	}
	return nil
}

func newRequestLogApp(activated bool, logBuffer *bytes.Buffer) *core.App {
	mockApp := &core.App{}
	mockApp.SetLogger(slog.New(newMemoryHandler(logBuffer)))
	cfg := config.NewDefaultConfig()
	cfg.Log.Request.Activated = activated
	cfg.Log.Request.Limits.UserAgentLength = 10
	mockApp.SetConfigProvider(config.NewProvider(cfg))
	return mockApp
}

func TestRequestLog_SuccessfulRequest(t *testing.T) {
	// --- Setup ---
	logBuffer := new(bytes.Buffer)
	mockApp := newRequestLogApp(true, logBuffer)

	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	// The Recorder must wrap the logger's handler.
	handlerChain := NewRecorder(mockApp).Execute(NewRequestLog(mockApp).Execute(finalHandler))

	req := httptest.NewRequest("GET", "/verify?q=1", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	req.Header.Set("CF-Connecting-IP", "9.9.9.9")
	req.Header.Set(core.HeaderForwardedUri, "/admin")
	req.Header.Set(core.HeaderForwardedHost, "app.example.com")
	req.Header.Set("User-Agent", "a-very-long-user-agent")

	// --- Execution ---
	handlerChain.ServeHTTP(httptest.NewRecorder(), req)

	// --- Verification ---
	rec := findRecord(t, logBuffer, logMessage)
	if rec == nil {
		t.Fatalf("no %q record in log: %s", logMessage, logBuffer.String())
	}
	checks := map[string]any{
		"type":          "request",
		"method":        "GET",
		"uri":           "/verify?q=1",
		"forwarded_uri": "/admin",
		"host":          "app.example.com",
		"status":        float64(http.StatusForbidden),
		"client_ip":     "9.9.9.9",
		"remote_ip":     "192.0.2.1",
		"user_agent":    "a-very-lon...",
	}
	for key, want := range checks {
		if got := rec[key]; got != want {
			t.Errorf("log %q = %v, want %v", key, got, want)
		}
	}
}

func TestRequestLog_Deactivated(t *testing.T) {
	logBuffer := new(bytes.Buffer)
	mockApp := newRequestLogApp(false, logBuffer)

	called := false
	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	NewRequestLog(mockApp).Execute(finalHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !called {
		t.Error("next handler was not called")
	}
	if logBuffer.Len() != 0 {
		t.Errorf("expected no log output, got %s", logBuffer.String())
	}
}

func TestRequestLog_WithoutRecorder(t *testing.T) {
	logBuffer := new(bytes.Buffer)
	mockApp := newRequestLogApp(true, logBuffer)

	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	})
	NewRequestLog(mockApp).Execute(finalHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	rec := findRecord(t, logBuffer, logMessage)
	if rec == nil {
		t.Fatal("request was not logged")
	}
	if rec["status"] != float64(http.StatusOK) || rec["bytes"] != float64(5) {
		t.Errorf("status = %v, bytes = %v, want 200, 5", rec["status"], rec["bytes"])
	}
}

func TestCutStr(t *testing.T) {
	testCases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"longer than ten", 10, "longer tha..."},
		{"no limit", 0, "no limit"},
	}
	for _, tc := range testCases {
		if got := cutStr(tc.in, tc.max); got != tc.want {
			t.Errorf("cutStr(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
