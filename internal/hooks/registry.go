package hooks

import (
	"fmt"
	"sync"

	"github.com/conduit-lang/docapi/internal/verb"
	"go.uber.org/zap"
)

// entry is one tap inside a (hook, verb) list. Entries created by the same
// registration share an id.
type entry struct {
	id  uint64
	tap Tap
}

// Registry manages the taps registered for an endpoint, keyed by hook name
// and verb. Registration happens during startup; Freeze closes it before the
// endpoint serves traffic.
type Registry struct {
	mu     sync.RWMutex
	taps   map[Hook]map[verb.Verb][]entry
	nextID uint64
	bulk   bool
	frozen bool
	logger *zap.Logger
}

// NewRegistry creates a new hook registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		taps:   make(map[Hook]map[verb.Verb][]entry),
		logger: logger,
	}
}

// Tap appends fn to the taps of (hook, v). A wildcard verb is expanded now
// into the verbs that exist at this moment: bulkpost is included only if
// EnableBulk was already called.
func (r *Registry) Tap(hook Hook, v verb.Verb, fn Tap) (Detach, error) {
	if fn == nil {
		return nil, fmt.Errorf("hooks: nil tap for %s::%s", hook, v)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil, fmt.Errorf("%w: cannot tap %s::%s", ErrFrozen, hook, v)
	}

	verbs, err := verb.Expand(v, r.bulk)
	if err != nil {
		return nil, fmt.Errorf("hooks: %w", err)
	}

	if r.taps[hook] == nil {
		r.taps[hook] = make(map[verb.Verb][]entry)
	}

	r.nextID++
	id := r.nextID
	for _, cv := range verbs {
		r.taps[hook][cv] = append(r.taps[hook][cv], entry{id: id, tap: fn})
	}

	r.logger.Debug("tapped hook",
		zap.String("hook", hook.String()),
		zap.String("verb", v.String()),
		zap.Int("verbs", len(verbs)),
	)

	return func() bool {
		return r.detach(hook, verbs, id)
	}, nil
}

// detach removes the first entry with id from each verb list
func (r *Registry) detach(hook Hook, verbs []verb.Verb, id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for _, v := range verbs {
		list := r.taps[hook][v]
		for i, e := range list {
			if e.id != id {
				continue
			}
			next := make([]entry, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			r.taps[hook][v] = next
			removed = true
			break
		}
	}
	return removed
}

// EnableBulk makes later wildcard registrations reach bulkpost
func (r *Registry) EnableBulk() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulk = true
}

// Freeze rejects every later registration
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze was called
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Taps returns a copy of the taps of (hook, v) in execution order. The
// result is never nil.
func (r *Registry) Taps(hook Hook, v verb.Verb) []Tap {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.taps[hook][v]
	out := make([]Tap, len(list))
	for i, e := range list {
		out[i] = e.tap
	}
	return out
}

// Len returns the number of taps registered for (hook, v)
func (r *Registry) Len(hook Hook, v verb.Verb) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.taps[hook][v])
}

// HasTaps returns true if there are any taps for (hook, v)
func (r *Registry) HasTaps(hook Hook, v verb.Verb) bool {
	return r.Len(hook, v) > 0
}
