package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLimiter(t *testing.T, perMinute int) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLimiter(client, perMinute)
	t.Cleanup(func() { l.Close() })
	return l, mr
}

func TestRedisLimiter_AllowsUpToLimit(t *testing.T) {
	l, _ := newTestRedisLimiter(t, 3)
	now := time.Date(2026, 3, 1, 12, 0, 45, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i+1)
	}

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 15*time.Second, d.RetryAfter)

	d, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "other clients keep their own budget")
}

func TestRedisLimiter_DeniedRequestsAreNotCounted(t *testing.T) {
	l, mr := newTestRedisLimiter(t, 1)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
	}

	key := "ratelimit:api:10.0.0.1:" + "29539440"
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.Equal(t, 120*time.Second, mr.TTL(key))
}

func TestRedisLimiter_NewWindowResets(t *testing.T) {
	l, _ := newTestRedisLimiter(t, 1)
	now := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	d, _ := l.Allow(ctx, "ip")
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "ip")
	assert.False(t, d.Allowed)

	now = now.Add(time.Minute)
	d, err := l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_ErrorWhenRedisDown(t *testing.T) {
	l, mr := newTestRedisLimiter(t, 5)
	mr.Close()

	_, err := l.Allow(context.Background(), "ip")
	assert.Error(t, err)
}

func TestNewRedisLimiterFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	l, err := NewRedisLimiterFromURL(context.Background(), "redis://"+mr.Addr(), 10)
	require.NoError(t, err)
	defer l.Close()

	d, err := l.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestNewRedisLimiterFromURL_InvalidURL(t *testing.T) {
	_, err := NewRedisLimiterFromURL(context.Background(), "not-a-url", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis URL")
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(60)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		d, err := l.Allow(ctx, "ip")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i+1)
	}

	d, err := l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)

	now = now.Add(time.Second)
	d, _ = l.Allow(ctx, "ip")
	assert.True(t, d.Allowed, "one token refills per second")
}

func TestMemoryLimiter_SweepsIdleClients(t *testing.T) {
	l := NewMemoryLimiter(60)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = l.Allow(ctx, "a")
	now = now.Add(11 * time.Minute)
	_, _ = l.Allow(ctx, "b")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.visitors, "a")
	assert.Contains(t, l.visitors, "b")
}

func TestNew(t *testing.T) {
	l, err := New(context.Background(), "", 10)
	require.NoError(t, err)
	assert.IsType(t, &MemoryLimiter{}, l)

	mr := miniredis.RunT(t)
	l, err = New(context.Background(), "redis://"+mr.Addr(), 10)
	require.NoError(t, err)
	assert.IsType(t, &RedisLimiter{}, l)
	l.Close()
}
