package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sampleEvent(code int) Event {
	return Event{
		Start:    time.UnixMilli(1700000000000),
		Elapsed:  42 * time.Millisecond,
		Endpoint: "/users",
		URL:      "/users?age=5",
		Method:   "list",
		Response: Response{Code: code, Success: Successful(code)},
	}
}

func TestSuccessful(t *testing.T) {
	assert.True(t, Successful(200))
	assert.True(t, Successful(304))
	assert.False(t, Successful(400))
	assert.False(t, Successful(500))
	assert.False(t, Successful(101))
}

func TestMulti_CallsEveryTracker(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	m := Multi{
		Func(func(context.Context, Event) error { calls++; return boom }),
		nil,
		Func(func(context.Context, Event) error { calls++; return nil }),
	}

	err := m.Track(context.Background(), sampleEvent(200))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestLogger_Track(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := NewLogger(zap.New(core))

	require.NoError(t, l.Track(context.Background(), sampleEvent(200)))
	fail := sampleEvent(404)
	fail.Response.Error = "not found"
	require.NoError(t, l.Track(context.Background(), fail))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "request completed", entries[0].Message)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "not found", entries[1].ContextMap()["error"])
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewRedis_InvalidConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      RedisConfig
		expectedErr string
	}{
		{"nil client", RedisConfig{Stream: "s"}, "redis client is required"},
		{"empty stream", RedisConfig{Client: &redis.Client{}}, "stream name is required"},
		{"negative max length", RedisConfig{Client: &redis.Client{}, Stream: "s", MaxLen: -1}, "max length must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRedis(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestRedis_Track(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	tracker, err := NewRedis(DefaultRedisConfig(client))
	require.NoError(t, err)

	ev := sampleEvent(201)
	ev.Method = "post"
	require.NoError(t, tracker.Track(ctx, ev))

	msgs, err := client.XRange(ctx, "docapi:requests", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	values := msgs[0].Values
	assert.Equal(t, "/users", values["endpoint"])
	assert.Equal(t, "post", values["method"])
	assert.Equal(t, "201", values["code"])
	assert.Equal(t, "true", values["success"])
	assert.Equal(t, "42", values["elapsed_ms"])
}

func TestPrometheus_Track(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg, "docapi")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Track(ctx, sampleEvent(200)))
	require.NoError(t, p.Track(ctx, sampleEvent(200)))
	require.NoError(t, p.Track(ctx, sampleEvent(500)))

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	var observed uint64
	for _, mf := range families {
		switch mf.GetName() {
		case "docapi_requests_total":
			for _, m := range mf.GetMetric() {
				for _, lp := range m.GetLabel() {
					if lp.GetName() == "code" {
						counts[lp.GetValue()] = m.GetCounter().GetValue()
					}
				}
			}
		case "docapi_request_duration_seconds":
			for _, m := range mf.GetMetric() {
				observed += m.GetHistogram().GetSampleCount()
			}
		}
	}

	assert.Equal(t, float64(2), counts["200"])
	assert.Equal(t, float64(1), counts["500"])
	assert.Equal(t, uint64(3), observed)
}

func TestPrometheus_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg, "docapi")
	require.NoError(t, err)

	_, err = NewPrometheus(reg, "docapi")
	assert.Error(t, err)
}

func TestAsync_DeliversEvents(t *testing.T) {
	var mu sync.Mutex
	var got []Event

	next := Func(func(_ context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
		return nil
	})

	a := NewAsync(next, 2, 10, nil)
	a.Start()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Track(context.Background(), sampleEvent(200)))
	}

	require.NoError(t, a.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 5)
}

func TestAsync_NotStarted(t *testing.T) {
	a := NewAsync(Nop, 1, 1, nil)
	assert.ErrorIs(t, a.Track(context.Background(), sampleEvent(200)), ErrQueueClosed)
}

func TestAsync_ClosedAfterShutdown(t *testing.T) {
	a := NewAsync(Nop, 1, 1, nil)
	a.Start()
	require.NoError(t, a.Shutdown(context.Background()))

	assert.ErrorIs(t, a.Track(context.Background(), sampleEvent(200)), ErrQueueClosed)
}

func TestAsync_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	next := Func(func(context.Context, Event) error {
		<-release
		return nil
	})

	core, logs := observer.New(zap.WarnLevel)
	a := NewAsync(next, 1, 1, zap.New(core))
	a.Start()

	// One event is held by the worker, one fills the buffer, the rest drop.
	for i := 0; i < 5; i++ {
		require.NoError(t, a.Track(context.Background(), sampleEvent(200)))
	}

	close(release)
	require.NoError(t, a.Shutdown(context.Background()))

	assert.NotZero(t, logs.FilterMessage("tracking queue full, dropping event").Len())
}

func TestAsync_RecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	a := NewAsync(Func(func(context.Context, Event) error { panic("sink exploded") }), 1, 1, zap.New(core))
	a.Start()

	require.NoError(t, a.Track(context.Background(), sampleEvent(200)))
	require.NoError(t, a.Shutdown(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("panic in tracker").Len())
}
