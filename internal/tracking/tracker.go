package tracking

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Response describes how a tracked request ended
type Response struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Event is emitted once per completed request
type Event struct {
	Request   *http.Request `json:"-"`
	RequestID string        `json:"request_id,omitempty"`
	Start     time.Time     `json:"start"`
	Elapsed   time.Duration `json:"elapsed"`
	Endpoint  string        `json:"endpoint"`
	URL       string        `json:"url"`
	Method    string        `json:"method"`
	Response  Response      `json:"response"`
}

// Tracker receives request events
type Tracker interface {
	Track(ctx context.Context, ev Event) error
}

// Func adapts a function to the Tracker interface
type Func func(ctx context.Context, ev Event) error

// Track calls f(ctx, ev)
func (f Func) Track(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Nop discards every event
var Nop Tracker = Func(func(context.Context, Event) error { return nil })

// Multi fans an event out to several trackers. Every tracker is called; the
// errors are joined.
type Multi []Tracker

// Track implements Tracker
func (m Multi) Track(ctx context.Context, ev Event) error {
	var errs []error
	for _, t := range m {
		if t == nil {
			continue
		}
		if err := t.Track(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Successful reports whether code is a success status
func Successful(code int) bool {
	return code >= 200 && code < 400
}
