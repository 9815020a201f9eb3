package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsHandler(config CORSConfig) (http.Handler, *bool) {
	called := false
	h := CORSWithConfig(config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	return h, &called
}

func TestCORS_SimpleRequest(t *testing.T) {
	h, called := corsHandler(DefaultCORSConfig())

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !*called {
		t.Fatal("expected handler to be called")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("expected origin to be echoed, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got != RequestIDHeader {
		t.Errorf("expected exposed request id header, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	h, called := corsHandler(DefaultCORSConfig())

	req := httptest.NewRequest(http.MethodOptions, "/users", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if *called {
		t.Error("expected preflight to be answered by the middleware")
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE" {
		t.Errorf("unexpected allowed methods %q", got)
	}
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "86400" {
		t.Errorf("unexpected max age %q", got)
	}
}

func TestCORS_OriginPatterns(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://*.example.com"}
	config.AllowCredentials = true

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://app.example.com", true},
		{"https://example.com", false},
		{"https://evil.com", false},
		{"http://app.example.com", false},
	}

	for _, tt := range tests {
		h, called := corsHandler(config)

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if !*called {
			t.Errorf("%s: expected handler to be called", tt.origin)
		}
		got := rec.Header().Get("Access-Control-Allow-Origin") != ""
		if got != tt.allowed {
			t.Errorf("%s: allowed = %v, want %v", tt.origin, got, tt.allowed)
		}
		if tt.allowed && rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Errorf("%s: expected credentials header", tt.origin)
		}
	}
}

func TestCORS_OptionsWithoutPreflightReachesHandler(t *testing.T) {
	h, called := corsHandler(DefaultCORSConfig())

	req := httptest.NewRequest(http.MethodOptions, "/users", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !*called {
		t.Error("expected a plain OPTIONS request to reach the handler")
	}
}
