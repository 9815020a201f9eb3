package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorHandler(t *testing.T) {
	eh := NewErrorHandler(true)
	assert.NotNil(t, eh)
	assert.True(t, eh.ShowDetails)

	eh = NewErrorHandler(false)
	assert.False(t, eh.ShowDetails)
}

func TestNotFoundHandler(t *testing.T) {
	router := NewRouter()
	eh := NewErrorHandler(true)
	router.NotFound(eh.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "NOT_FOUND", response.Error.Code)
	assert.Equal(t, "The requested resource was not found", response.Error.Message)
	assert.Equal(t, http.StatusNotFound, response.Status)
	assert.Equal(t, "/nonexistent", response.Path)
	assert.Equal(t, http.MethodGet, response.Method)
}

func TestNotFoundHandlerWithoutDetails(t *testing.T) {
	router := NewRouter()
	router.NotFound(NewErrorHandler(false).NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Empty(t, response.Path)
	assert.Empty(t, response.Method)
}

func TestMethodNotAllowedHandler(t *testing.T) {
	router := NewRouter()
	SetupDefaultErrorHandlers(router, false)
	router.Get("/users", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPatch, "/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "METHOD_NOT_ALLOWED", response.Error.Code)
	assert.Contains(t, response.Error.Message, "PATCH")
}
