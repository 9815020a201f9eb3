package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("tap exploded")
	})

	rec := httptest.NewRecorder()
	Recovery(zap.New(core))(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON response, got %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "internal_server_error") {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}

	entries := logs.FilterMessage("panic recovered").All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}
	if _, ok := entries[0].ContextMap()["stack"]; !ok {
		t.Error("Expected stack trace in log entry")
	}
}

func TestRecoveryWithErrorValue(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("boom"))
	})

	mw := RecoveryWithConfig(RecoveryConfig{Logger: zap.New(core)})
	mw(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["error"]; got != "boom" {
		t.Errorf("Expected error boom, got %v", got)
	}
	if _, ok := entries[0].ContextMap()["stack"]; ok {
		t.Error("Stack trace should be disabled")
	}
}

func TestRecoveryCustomResponse(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("x")
	})

	mw := RecoveryWithConfig(RecoveryConfig{
		ResponseHandler: func(w http.ResponseWriter, r *http.Request, v interface{}) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	})

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestRecoveryPassesThrough(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	Recovery(nil)(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected 418, got %d", rec.Code)
	}
}
