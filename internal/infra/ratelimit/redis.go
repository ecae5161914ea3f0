package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moltoverflow/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// One sorted set per fingerprint, scored by request time in milliseconds.
var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
local count = redis.call("ZCARD", KEYS[1])
if count >= limit then
  local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
  return {0, count, tonumber(oldest[2])}
end
redis.call("ZADD", KEYS[1], now, ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
local first = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
return {1, count + 1, tonumber(first[2])}
`)

type RedisLimiter struct {
	client *redis.Client
	cfg    Config
	prefix string
}

func NewRedisLimiter(addr, password string, db int, cfg Config) (*RedisLimiter, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisLimiter{client: client, cfg: cfg.withDefaults(), prefix: "molt:ratelimit:"}, nil
}

func (r *RedisLimiter) CheckAndRecord(ctx context.Context, fingerprint string, now time.Time) (domain.RateLimitDecision, error) {
	nowMillis := now.UnixMilli()
	ttl := r.cfg.Retention
	if ttl < r.cfg.Window {
		ttl = r.cfg.Window
	}
	member := fmt.Sprintf("%d-%s", nowMillis, uuid.NewString())
	result, err := slidingWindowScript.Run(ctx, r.client, []string{r.prefix + fingerprint},
		nowMillis, r.cfg.Window.Milliseconds(), r.cfg.Limit, member, ttl.Milliseconds()).Result()
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	values, ok := result.([]any)
	if !ok || len(values) < 3 {
		return domain.RateLimitDecision{}, errors.New("unexpected redis rate limit response")
	}
	allowed, _ := values[0].(int64)
	count, _ := values[1].(int64)
	oldestMillis, _ := values[2].(int64)
	resetAt := time.UnixMilli(oldestMillis).Add(r.cfg.Window)

	decision := domain.RateLimitDecision{
		Allowed: allowed == 1,
		Limit:   r.cfg.Limit,
		ResetAt: resetAt,
	}
	if decision.Allowed {
		decision.Remaining = r.cfg.Limit - int(count)
		return decision, nil
	}
	decision.RetryAfter = retryAfter(resetAt, now)
	return decision, nil
}

// Sweep is a no-op: every key carries a TTL of at least the retention period.
func (r *RedisLimiter) Sweep(context.Context, time.Time, time.Duration) (int, error) {
	return 0, nil
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

var _ domain.SlidingWindowLimiter = (*RedisLimiter)(nil)
