package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/conduit-lang/docapi/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureTracker(events *[]tracking.Event) tracking.Tracker {
	return tracking.Func(func(_ context.Context, ev tracking.Event) error {
		*events = append(*events, ev)
		return nil
	})
}

func TestTracking_Success(t *testing.T) {
	var events []tracking.Event
	now := time.UnixMilli(1700000000500)

	mw := TrackingWithConfig(TrackingConfig{
		Endpoint: "/users",
		Method:   "list",
		Tracker:  captureTracker(&events),
		Now:      func() time.Time { return now },
	})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	req := httptest.NewRequest(http.MethodGet, "/users?age=5", nil)
	req.Header.Set(RequestStartHeader, strconv.FormatInt(1700000000000, 10))
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "/users", ev.Endpoint)
	assert.Equal(t, "/users?age=5", ev.URL)
	assert.Equal(t, "list", ev.Method)
	assert.Equal(t, 500*time.Millisecond, ev.Elapsed)
	assert.Equal(t, http.StatusOK, ev.Response.Code)
	assert.True(t, ev.Response.Success)
	assert.Empty(t, ev.Response.Error)
}

func TestTracking_FailureCapturesBody(t *testing.T) {
	var events []tracking.Event

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	Tracking("/users", captureTracker(&events))(handler).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/1", nil))

	require.Len(t, events, 1)
	assert.Equal(t, http.StatusNotFound, events[0].Response.Code)
	assert.False(t, events[0].Response.Success)
	assert.Equal(t, "not found", events[0].Response.Error)
}

func TestTracking_MethodSlot(t *testing.T) {
	var events []tracking.Event

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trace, ok := TraceFrom(r.Context())
		require.True(t, ok)
		assert.False(t, trace.Start.IsZero())
		trace.SetMethod("fetch")
	})

	Tracking("/users", captureTracker(&events))(handler).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/1", nil))

	require.Len(t, events, 1)
	assert.Equal(t, "fetch", events[0].Method)
}

func TestTracking_InvalidStartHeaderUsesClock(t *testing.T) {
	var events []tracking.Event
	now := time.UnixMilli(1700000000000)

	mw := TrackingWithConfig(TrackingConfig{
		Tracker: captureTracker(&events),
		Now:     func() time.Time { return now },
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestStartHeader, "yesterday")
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, events, 1)
	assert.Equal(t, now, events[0].Start)
	assert.Zero(t, events[0].Elapsed)
}

func TestTraceFromMissing(t *testing.T) {
	_, ok := TraceFrom(context.Background())
	assert.False(t, ok)
}

func TestTracking_PanicIsTrackedAndRethrown(t *testing.T) {
	var events []tracking.Event

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("store exploded")
	})

	h := Recovery(nil)(Tracking("/users", captureTracker(&events))(handler))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, events, 1)
	assert.Equal(t, http.StatusInternalServerError, events[0].Response.Code)
	assert.False(t, events[0].Response.Success)
	assert.Equal(t, "panic: store exploded", events[0].Response.Error)
}

func TestTracking_PanicAfterHeaderKeepsStatus(t *testing.T) {
	var events []tracking.Event

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	})

	assert.Panics(t, func() {
		Tracking("/users", captureTracker(&events))(handler).
			ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users", nil))
	})
	require.Len(t, events, 1)
	assert.Equal(t, http.StatusAccepted, events[0].Response.Code)
}
