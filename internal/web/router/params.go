package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// IDParam is the path parameter naming a document
const IDParam = "id"

// GetPathParam extracts a path parameter by name
func GetPathParam(req *http.Request, name string) string {
	return chi.URLParam(req, name)
}

// RequirePathParam extracts a path parameter, failing when it is empty
func RequirePathParam(req *http.Request, name string) (string, error) {
	value := chi.URLParam(req, name)
	if value == "" {
		return "", fmt.Errorf("missing path parameter: %s", name)
	}
	return value, nil
}

// Join appends a sub pattern to a resource path
func Join(base, sub string) string {
	if sub == "" || sub == "/" {
		if base == "" {
			return "/"
		}
		return base
	}
	if base == "/" {
		base = ""
	}
	return base + sub
}
