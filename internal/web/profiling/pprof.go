// Package profiling serves the runtime profiles of net/http/pprof.
//
// Profiles expose memory contents and goroutine stacks. Enable them only on
// servers that are not reachable publicly.
package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/go-chi/chi/v5"
)

// Path is where the profiles are served; pprof.Index links relative to it
const Path = "/debug/pprof"

// Config holds profiling configuration
type Config struct {
	// BlockRate sets the block profiling rate; zero leaves it unchanged
	BlockRate int
	// MutexFraction sets the mutex profiling fraction; zero leaves it unchanged
	MutexFraction int
}

// Handler returns the profile routes, to be mounted at Path
func Handler(config Config) http.Handler {
	if config.BlockRate > 0 {
		runtime.SetBlockProfileRate(config.BlockRate)
	}
	if config.MutexFraction > 0 {
		runtime.SetMutexProfileFraction(config.MutexFraction)
	}

	r := chi.NewRouter()
	r.Get("/", pprof.Index)
	r.Get("/cmdline", pprof.Cmdline)
	r.Get("/profile", pprof.Profile)
	r.Get("/symbol", pprof.Symbol)
	r.Post("/symbol", pprof.Symbol)
	r.Get("/trace", pprof.Trace)
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		r.Handle("/"+name, pprof.Handler(name))
	}
	return r
}
