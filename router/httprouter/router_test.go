package httprouter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouter_RoutesAndCatchAll(t *testing.T) {
	r := New()
	r.HandleFunc(http.MethodGet, "/health", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("health"))
	})
	r.Handle(http.MethodHead, "/health", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	r.NotFound(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("catch-all"))
	}))

	testCases := []struct {
		name     string
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{"exact route", http.MethodGet, "/health", http.StatusOK, "health"},
		{"head route", http.MethodHead, "/health", http.StatusOK, ""},
		{"other method on known path", http.MethodPost, "/health", http.StatusOK, "catch-all"},
		{"trailing slash not redirected", http.MethodGet, "/health/", http.StatusOK, "catch-all"},
		{"case not redirected", http.MethodGet, "/HEALTH", http.StatusOK, "catch-all"},
		{"unknown path", http.MethodGet, "/anything/else", http.StatusOK, "catch-all"},
		{"root", http.MethodDelete, "/", http.StatusOK, "catch-all"},
		{"options", http.MethodOptions, "/health", http.StatusOK, "catch-all"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			if body := rec.Body.String(); body != tc.wantBody {
				t.Errorf("body = %q, want %q", body, tc.wantBody)
			}
		})
	}
}
