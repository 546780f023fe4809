// Package ratelimit enforces the per-client request budget on the /api
// routes. A Redis fixed-window counter is used when Redis is configured so
// several instances share one budget; otherwise each process keeps its own
// token buckets.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/blast-sender/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether a client identified by key may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Close() error
}

// Checks the counter before incrementing so denied requests do not extend
// the client's penalty.
const fixedWindowLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")
if current + 1 > limit then
    return {0, current}
end

local newVal = redis.call("INCR", key)
if newVal == 1 then
    redis.call("EXPIRE", key, ttl)
end

return {1, newVal}
`

// RedisLimiter is a fixed one-minute window shared through Redis.
type RedisLimiter struct {
	redis  *redis.Client
	script *redis.Script
	limit  int
	now    func() time.Time
}

// NewRedisLimiter allows perMinute requests per key per wall-clock minute.
func NewRedisLimiter(client *redis.Client, perMinute int) *RedisLimiter {
	return &RedisLimiter{
		redis:  client,
		script: redis.NewScript(fixedWindowLuaScript),
		limit:  perMinute,
		now:    time.Now,
	}
}

// NewRedisLimiterFromURL connects to Redis and verifies the connection.
func NewRedisLimiterFromURL(ctx context.Context, redisURL string, perMinute int) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("Rate limiter connected to Redis", "addr", opts.Addr)

	return NewRedisLimiter(client, perMinute), nil
}

// Allow counts one request for key in the current minute.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := r.now()
	windowKey := fmt.Sprintf("ratelimit:api:%s:%d", key, now.Unix()/60)

	result, err := r.script.Run(ctx, r.redis,
		[]string{windowKey},
		r.limit,
		120, // 2 minute TTL
	).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed, ok := result[0].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("rate limit check: unexpected reply %v", result)
	}
	if allowed == 1 {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAfter: time.Duration(60-now.Second()) * time.Second}, nil
}

// Close closes the Redis connection.
func (r *RedisLimiter) Close() error {
	return r.redis.Close()
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps a token bucket per key in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewMemoryLimiter refills perMinute tokens per minute with a full-minute
// burst, so a fresh client gets the same budget as with the Redis window.
func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

func (m *MemoryLimiter) get(key string, now time.Time) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.visitors[key]
	if !ok {
		m.sweep(now)
		v = &visitor{limiter: rate.NewLimiter(m.rate, m.burst)}
		m.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweep drops buckets that have been idle long enough to be full again.
// Caller holds mu.
func (m *MemoryLimiter) sweep(now time.Time) {
	for key, v := range m.visitors {
		if now.Sub(v.lastSeen) > m.idle {
			delete(m.visitors, key)
		}
	}
}

// Allow takes one token from key's bucket.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()
	l := m.get(key, now)

	res := l.ReserveN(now, 1)
	if !res.OK() {
		return Decision{RetryAfter: time.Minute}, nil
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return Decision{RetryAfter: delay}, nil
	}
	return Decision{Allowed: true}, nil
}

// Close is a no-op.
func (m *MemoryLimiter) Close() error { return nil }

// New picks the Redis limiter when redisURL is set, otherwise the in-memory one.
func New(ctx context.Context, redisURL string, perMinute int) (Limiter, error) {
	if redisURL == "" {
		return NewMemoryLimiter(perMinute), nil
	}
	l, err := NewRedisLimiterFromURL(ctx, redisURL, perMinute)
	if err != nil {
		return nil, err
	}
	return l, nil
}
