package tracking

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned by Track once the queue has been shut down
var ErrQueueClosed = errors.New("tracking queue closed")

// Async delivers events to a tracker from a pool of workers so that the
// request path never waits on a slow sink. When the buffer is full the event
// is dropped and logged.
type Async struct {
	next        Tracker
	events      chan Event
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	shutdown    bool
	mu          sync.Mutex
	logger      *zap.Logger
}

// NewAsync creates a worker pool delivering to next
func NewAsync(next Tracker, workerCount, buffer int, logger *zap.Logger) *Async {
	if workerCount <= 0 {
		workerCount = 4
	}
	if buffer <= 0 {
		buffer = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Async{
		next:        next,
		events:      make(chan Event, buffer),
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.Named("tracking"),
	}
}

// Start starts the worker pool
func (a *Async) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return
	}

	for i := 0; i < a.workerCount; i++ {
		a.wg.Add(1)
		go a.worker(i)
	}

	a.started = true
}

func (a *Async) worker(id int) {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case ev, ok := <-a.events:
			if !ok {
				return
			}
			a.deliver(id, ev)
		}
	}
}

func (a *Async) deliver(id int, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic in tracker",
				zap.Int("worker", id),
				zap.String("endpoint", ev.Endpoint),
				zap.Any("panic", r),
			)
		}
	}()

	if err := a.next.Track(a.ctx, ev); err != nil {
		a.logger.Warn("tracker failed",
			zap.Int("worker", id),
			zap.String("endpoint", ev.Endpoint),
			zap.Error(err),
		)
	}
}

// Track enqueues ev without blocking
func (a *Async) Track(_ context.Context, ev Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started || a.shutdown {
		return ErrQueueClosed
	}

	// The request is done by the time workers see the event.
	ev.Request = nil

	select {
	case a.events <- ev:
	default:
		a.logger.Warn("tracking queue full, dropping event",
			zap.String("endpoint", ev.Endpoint),
			zap.String("method", ev.Method),
		)
	}
	return nil
}

// Shutdown stops accepting events and waits for queued ones to be delivered
// or for ctx to expire
func (a *Async) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if !a.started || a.shutdown {
		a.mu.Unlock()
		return nil
	}
	a.shutdown = true
	close(a.events)
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.cancel()
		return nil
	case <-ctx.Done():
		a.cancel()
		<-done
		return ctx.Err()
	}
}
