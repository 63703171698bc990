package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript runs the token bucket atomically in Redis.
// KEYS[1] = bucket key ("admission:<customerId>")
// ARGV[1] = refill rate (tokens per second)
// ARGV[2] = capacity
// ARGV[3] = current unix timestamp (fractional seconds)
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = tokens + elapsed * rate
    if tokens > capacity then
        tokens = capacity
    end
    last_refill = now
end

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, 60)

return allowed
`)

// RedisStore shares bucket state across instances through a Lua script, so
// check-and-consume stays atomic without application-side locking.
type RedisStore struct {
	client *redis.Client
	policy Policy
}

// NewRedisStore creates a store over an existing Redis client.
func NewRedisStore(client *redis.Client, policy Policy) *RedisStore {
	return &RedisStore{client: client, policy: policy}
}

func (s *RedisStore) Allow(ctx context.Context, customerID string) (bool, error) {
	key := fmt.Sprintf("admission:%s", customerID)
	now := float64(time.Now().UnixMicro()) / 1e6

	res, err := tokenBucketScript.Run(ctx, s.client, []string{key},
		s.policy.RefillPerSec, s.policy.Capacity, now).Result()
	if err != nil {
		return false, fmt.Errorf("redis admission check: %w", err)
	}

	allowed, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected response from admission script: %v", res)
	}
	return allowed == 1, nil
}
