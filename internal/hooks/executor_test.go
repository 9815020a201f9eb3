package hooks

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/conduit-lang/docapi/internal/verb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(v verb.Verb) *Context {
	req := httptest.NewRequest("GET", "/users", nil)
	return NewContext(req.Context(), req, "/users", v)
}

func TestRun_NoTapsReturnsValue(t *testing.T) {
	r := NewRegistry(nil)

	out, err := r.Run(newTestContext(verb.List), PreFilter, verb.List, "filter")
	require.NoError(t, err)
	assert.Equal(t, "filter", out)
}

func TestRun_ThreadsValueInOrder(t *testing.T) {
	r := NewRegistry(nil)

	r.Tap(PreResponse, verb.Fetch, func(ctx *Context, value any) Result {
		return Continue(value.(string) + "a")
	})
	r.Tap(PreResponse, verb.Fetch, func(ctx *Context, value any) Result {
		return Async(func() (any, error) {
			time.Sleep(5 * time.Millisecond)
			return value.(string) + "b", nil
		})
	})
	r.Tap(PreResponse, verb.Fetch, func(ctx *Context, value any) Result {
		return Continue(value.(string) + "c")
	})

	out, err := r.Run(newTestContext(verb.Fetch), PreResponse, verb.Fetch, "")
	require.NoError(t, err)
	assert.Equal(t, "abc", out)
}

func TestRun_ContextCarriesHook(t *testing.T) {
	r := NewRegistry(nil)
	var seen Hook
	var path string

	r.Tap(PostRetrieve, verb.Put, func(ctx *Context, value any) Result {
		seen = ctx.Hook()
		path = ctx.Path()
		return Continue(value)
	})

	_, err := r.Run(newTestContext(verb.Put), PostRetrieve, verb.Put, nil)
	require.NoError(t, err)
	assert.Equal(t, PostRetrieve, seen)
	assert.Equal(t, "/users", path)
}

func TestRun_FailStopsChain(t *testing.T) {
	r := NewRegistry(nil)
	boom := errors.New("boom")
	called := false

	r.Tap(PreFilter, verb.List, func(ctx *Context, value any) Result {
		return Fail(boom)
	})
	r.Tap(PreFilter, verb.List, func(ctx *Context, value any) Result {
		called = true
		return Continue(value)
	})

	_, err := r.Run(newTestContext(verb.List), PreFilter, verb.List, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, called, "taps after a failure must not run")
}

func TestRun_AsyncErrorStopsChain(t *testing.T) {
	r := NewRegistry(nil)
	boom := errors.New("lookup failed")

	r.Tap(PreFilter, verb.Fetch, func(ctx *Context, value any) Result {
		return Async(func() (any, error) { return nil, boom })
	})

	_, err := r.Run(newTestContext(verb.Fetch), PreFilter, verb.Fetch, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRun_ZeroResult(t *testing.T) {
	r := NewRegistry(nil)

	r.Tap(PreSave, verb.Post, func(ctx *Context, value any) Result {
		return Result{}
	})

	_, err := r.Run(newTestContext(verb.Post), PreSave, verb.Post, nil)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestRun_ContinueNil(t *testing.T) {
	r := NewRegistry(nil)

	r.Tap(PreResponse, verb.Delete, func(ctx *Context, value any) Result {
		return Continue(nil)
	})

	out, err := r.Run(newTestContext(verb.Delete), PreResponse, verb.Delete, "doc")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestRun_AbandonedAwait(t *testing.T) {
	r := NewRegistry(nil)

	r.Tap(PreFilter, verb.List, func(ctx *Context, value any) Result {
		ch := make(chan Outcome)
		close(ch)
		return Await(ch)
	})

	_, err := r.Run(newTestContext(verb.List), PreFilter, verb.List, nil)
	assert.ErrorIs(t, err, ErrAbandoned)
}

func TestRun_AwaitHonorsCancellation(t *testing.T) {
	r := NewRegistry(nil)

	r.Tap(PreFilter, verb.List, func(ctx *Context, value any) Result {
		return Await(make(chan Outcome))
	})

	parent, cancel := context.WithCancel(context.Background())
	ctx := NewContext(parent, nil, "/users", verb.List)

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(ctx, PreFilter, verb.List, nil)
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestResultConstructors(t *testing.T) {
	assert.True(t, Result{}.IsZero())
	assert.True(t, Fail(nil).IsZero())
	assert.True(t, Await(nil).IsZero())
	assert.False(t, Continue(nil).IsZero())
}
