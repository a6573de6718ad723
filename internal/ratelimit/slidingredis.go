package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces limiter keys when Limiter.Prefix is empty.
const DefaultPrefix = "offers:rl:"

// slidingWindow trims expired entries and records the call only when the
// window still has room, so rejected calls never push the reset further out.
// Scores are unix microseconds.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local first = now
  if oldest[2] then
    first = tonumber(oldest[2])
  end
  return {0, count, first}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, ARGV[5])
return {1, count + 1, now}
`)

// Limiter implements a sliding window rate limiter backed by a Redis sorted set per key.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow records a call for key when fewer than max calls landed in the trailing window.
// reset is when the oldest counted call leaves the window.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	now := time.Now()
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}

	prefix := l.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	windowMs := window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}
	res, err := slidingWindow.Run(ctx, l.Client, []string{prefix + key},
		now.UnixMicro(),
		window.Microseconds(),
		max,
		uuid.NewString(),
		strconv.FormatInt(windowMs, 10),
	).Int64Slice()
	if err != nil {
		return false, 0, now.Add(window), err
	}
	if len(res) < 3 {
		return true, max, now.Add(window), nil
	}

	count := int(res[1])
	remaining = max - count
	if remaining < 0 {
		remaining = 0
	}
	reset = time.UnixMicro(res[2]).Add(window)
	return res[0] == 1, remaining, reset, nil
}
