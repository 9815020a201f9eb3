package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow counts the members of a sorted set scored by request time in
// milliseconds. It returns {allowed, count, oldest score}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	count = count + 1
	allowed = 1
end
redis.call('PEXPIRE', key, window)

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local first = now
if oldest[2] then
	first = tonumber(oldest[2])
end
return {allowed, count, first}
`)

// RedisConfig configures a Redis limiter
type RedisConfig struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
	// Prefix namespaces the keys
	Prefix string
}

// Redis is a sliding-window limiter shared by every process using the same
// Redis
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedis creates a Redis limiter
func NewRedis(config RedisConfig) (*Redis, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if config.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}
	if config.Prefix == "" {
		config.Prefix = "docapi:ratelimit:"
	}

	return &Redis{
		client: config.Client,
		limit:  config.Limit,
		window: config.Window,
		prefix: config.Prefix,
		now:    time.Now,
	}, nil
}

// Allow implements Limiter
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	now := r.now()

	res, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMilli(),
		r.window.Milliseconds(),
		r.limit,
		uuid.New().String(),
	).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, errors.New("unexpected rate limit script result")
	}

	allowed, ok1 := res[0].(int64)
	count, ok2 := res[1].(int64)
	first, ok3 := res[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return Decision{}, errors.New("unexpected rate limit script result")
	}

	remaining := r.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Limit:     r.limit,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(first).Add(r.window),
		Allowed:   allowed == 1,
	}, nil
}
