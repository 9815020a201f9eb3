package middleware

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/conduit-lang/docapi/internal/tracking"
	"go.uber.org/zap"
)

// RequestStartHeader carries the time, in milliseconds since the epoch, at
// which a proxy in front of the service accepted the request
const RequestStartHeader = "X-Request-Start"

// maxErrorBody bounds how much of a failure body is kept for the event
const maxErrorBody = 4096

type traceKey struct{}

// Trace is attached to the context of every tracked request
type Trace struct {
	Start time.Time

	mu     sync.Mutex
	method string
}

// SetMethod records the logical operation served by the request
func (t *Trace) SetMethod(method string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.method = method
}

// Method returns the logical operation served by the request
func (t *Trace) Method() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.method
}

// TraceFrom extracts the trace of a tracked request
func TraceFrom(ctx context.Context) (*Trace, bool) {
	t, ok := ctx.Value(traceKey{}).(*Trace)
	return t, ok
}

// TrackingConfig holds configuration for the tracking middleware
type TrackingConfig struct {
	// Endpoint is the resource path reported in events
	Endpoint string
	// Method is the initial value of the trace method slot
	Method string
	// Tracker receives one event per completed request
	Tracker tracking.Tracker
	// Now is the clock used when the request carries no start header
	Now func() time.Time
	// Logger reports tracker failures
	Logger *zap.Logger
}

// Tracking creates a tracking middleware for the endpoint mounted at path
func Tracking(path string, tracker tracking.Tracker) Middleware {
	return TrackingWithConfig(TrackingConfig{Endpoint: path, Tracker: tracker})
}

// TrackingWithConfig creates a tracking middleware with custom configuration
func TrackingWithConfig(config TrackingConfig) Middleware {
	if config.Tracker == nil {
		config.Tracker = tracking.Nop
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			trace := &Trace{
				Start:  requestStart(r, config.Now),
				method: config.Method,
			}
			r = r.WithContext(context.WithValue(r.Context(), traceKey{}, trace))

			rec := &trackingWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			defer func() {
				p := recover()

				code := rec.statusCode
				if p != nil && !rec.wroteHeader {
					code = http.StatusInternalServerError
				}
				ev := tracking.Event{
					Request:   r,
					RequestID: GetRequestID(r.Context()),
					Start:     trace.Start,
					Elapsed:   config.Now().Sub(trace.Start),
					Endpoint:  config.Endpoint,
					URL:       r.URL.RequestURI(),
					Method:    trace.Method(),
					Response: tracking.Response{
						Code:    code,
						Success: tracking.Successful(code),
					},
				}
				if code >= http.StatusBadRequest {
					ev.Response.Error = strings.TrimSpace(rec.body.String())
				}
				if p != nil && ev.Response.Error == "" {
					ev.Response.Error = panicError(p).Error()
				}

				if err := config.Tracker.Track(r.Context(), ev); err != nil {
					config.Logger.Warn("failed to track request",
						zap.String("endpoint", config.Endpoint),
						zap.Error(err),
					)
				}

				// outer middleware renders the failure
				if p != nil {
					panic(p)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

func requestStart(r *http.Request, now func() time.Time) time.Time {
	if v := r.Header.Get(RequestStartHeader); v != "" {
		if ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && ms > 0 {
			return time.UnixMilli(ms)
		}
	}
	return now()
}

// trackingWriter captures the status code and the body of failed responses
type trackingWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	body        bytes.Buffer
}

func (tw *trackingWriter) WriteHeader(statusCode int) {
	if !tw.wroteHeader {
		tw.statusCode = statusCode
		tw.wroteHeader = true
		tw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (tw *trackingWriter) Write(b []byte) (int, error) {
	if !tw.wroteHeader {
		tw.WriteHeader(http.StatusOK)
	}
	if tw.statusCode >= http.StatusBadRequest && tw.body.Len() < maxErrorBody {
		n := maxErrorBody - tw.body.Len()
		if n > len(b) {
			n = len(b)
		}
		tw.body.Write(b[:n])
	}
	return tw.ResponseWriter.Write(b)
}
