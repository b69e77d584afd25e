// Package ratelimit implements token bucket limiters for the credential endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"campus/config"
	"campus/internal/domain/service"
	"campus/internal/errors"
)

const redisKeyPrefix = "campus:ratelimit:"

// tokenBucketScript refills the bucket by whole intervals, takes one token if available and
// returns { allowed, tokens, retry_after_ms }.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
    local elapsed = math.max(0, now_ms - last_refill)
    local intervals = math.floor(elapsed / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + (intervals * refill_tokens))
        last_refill = last_refill + (intervals * interval_ms)
    end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// redisLimiter shares one bucket per key across every instance of the service.
type redisLimiter struct {
	client redis.Scripter
	cfg    config.RateLimitConfig
	now    func() time.Time
}

// NewRedisLimiter creates a limiter backed by a Lua token bucket.
func NewRedisLimiter(client redis.Scripter, cfg config.RateLimitConfig) service.RateLimiter {
	return &redisLimiter{client: client, cfg: cfg, now: time.Now}
}

// Allow takes one token from the bucket of key.
func (l *redisLimiter) Allow(ctx context.Context, key string) (service.RateLimitDecision, error) {
	args := []any{
		l.now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL / time.Second),
	}

	vals, err := tokenBucketScript.Run(ctx, l.client, []string{redisKeyPrefix + key}, args...).Result()
	if err != nil {
		return service.RateLimitDecision{}, errors.Wrap(err, "rate limit script failed")
	}

	return parseScriptResult(vals)
}

func parseScriptResult(vals any) (service.RateLimitDecision, error) {
	arr, ok := vals.([]any)
	if !ok || len(arr) != 3 {
		return service.RateLimitDecision{}, errors.Errorf("unexpected rate limit script result %#v", vals)
	}

	return service.RateLimitDecision{
		Allowed:    asInt64(arr[0]) == 1,
		Remaining:  int(asInt64(arr[1])),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	default:
		if n, err := strconv.ParseInt(fmt.Sprint(t), 10, 64); err == nil {
			return n
		}
	}

	return 0
}
