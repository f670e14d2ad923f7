package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandler(t *testing.T) {
	testCases := []struct {
		name      string
		banned    []string
		wantCount int
	}{
		{"empty set", nil, 0},
		{"one entry", []string{"9.9.9.9"}, 1},
		{"several entries", []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"}, 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app, refresher := newTestApp(nil, tc.banned...)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rr := httptest.NewRecorder()
			app.HealthHandler(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != HeadersJson["Content-Type"] {
				t.Errorf("Content-Type = %q", ct)
			}

			var body healthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode body %q: %v", rr.Body.String(), err)
			}
			if body.Status != "ok" || body.BannedIpCount != tc.wantCount {
				t.Errorf("body = %+v, want status ok and count %d", body, tc.wantCount)
			}
			if refresher.calls != 0 {
				t.Errorf("health triggered %d refreshes, want 0", refresher.calls)
			}
		})
	}
}

func TestHealthHandler_ExactBody(t *testing.T) {
	app, _ := newTestApp(nil, "9.9.9.9")
	rr := httptest.NewRecorder()
	app.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	want := `{"status":"ok","banned_ip_count":1}`
	if got := rr.Body.String(); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestPassHandler(t *testing.T) {
	app, _ := newTestApp(nil)
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, "PROPFIND"} {
		rr := httptest.NewRecorder()
		app.PassHandler(rr, httptest.NewRequest(method, "/any/path", nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", method, rr.Code)
		}
		if rr.Body.Len() != 0 {
			t.Errorf("%s: body = %q, want empty", method, rr.Body.String())
		}
	}
}
