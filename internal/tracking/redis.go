package tracking

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds configuration for the Redis stream tracker
type RedisConfig struct {
	// Client is the Redis client to use
	Client *redis.Client
	// Stream is the stream key events are appended to
	Stream string
	// MaxLen caps the stream length (approximately); zero means unbounded
	MaxLen int64
}

// DefaultRedisConfig returns a default Redis tracker configuration
func DefaultRedisConfig(client *redis.Client) RedisConfig {
	return RedisConfig{
		Client: client,
		Stream: "docapi:requests",
	}
}

// Redis appends events to a Redis stream
type Redis struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedis creates a Redis stream tracker
func NewRedis(config RedisConfig) (*Redis, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Stream == "" {
		return nil, errors.New("stream name is required")
	}
	if config.MaxLen < 0 {
		return nil, errors.New("max length must not be negative")
	}

	return &Redis{
		client: config.Client,
		stream: config.Stream,
		maxLen: config.MaxLen,
	}, nil
}

// Track implements Tracker
func (r *Redis) Track(ctx context.Context, ev Event) error {
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"endpoint":   ev.Endpoint,
			"method":     ev.Method,
			"url":        ev.URL,
			"code":       strconv.Itoa(ev.Response.Code),
			"success":    strconv.FormatBool(ev.Response.Success),
			"error":      ev.Response.Error,
			"elapsed_ms": strconv.FormatInt(ev.Elapsed.Milliseconds(), 10),
			"start":      strconv.FormatInt(ev.Start.UnixMilli(), 10),
			"request_id": ev.RequestID,
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to append tracking event: %w", err)
	}
	return nil
}
