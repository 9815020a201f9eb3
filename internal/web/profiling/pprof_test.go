package profiling

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestHandler(t *testing.T) {
	r := chi.NewRouter()
	r.Mount(Path, Handler(Config{}))

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{Path + "/", http.StatusOK, "goroutine"},
		{Path + "/goroutine?debug=1", http.StatusOK, "goroutine profile"},
		{Path + "/cmdline", http.StatusOK, ""},
		{Path + "/missing", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

		if rec.Code != tt.status {
			t.Errorf("%s: expected status %d, got %d", tt.path, tt.status, rec.Code)
		}
		if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
			t.Errorf("%s: expected body to contain %q", tt.path, tt.contains)
		}
	}
}
