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

func TestMemoryLimiter_DailyCap(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		limit       int
		registered  int
		wantAllowed bool
	}{
		{name: "fresh contact allowed", limit: 8, registered: 0, wantAllowed: true},
		{name: "under limit allowed", limit: 8, registered: 7, wantAllowed: true},
		{name: "at limit blocked", limit: 8, registered: 8, wantAllowed: false},
		{name: "custom limit respected", limit: 2, registered: 2, wantAllowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewMemoryLimiter(tt.limit, time.UTC)
			for i := 0; i < tt.registered; i++ {
				require.NoError(t, l.Register(ctx, "5562999990001"))
			}

			d, err := l.Evaluate(ctx, "5562999990001")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, d.Allowed)
			assert.Equal(t, tt.registered, d.Count)
			assert.Equal(t, tt.limit, d.Limit)
		})
	}
}

func TestMemoryLimiter_EvaluateDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(2, time.UTC)

	for i := 0; i < 10; i++ {
		d, err := l.Evaluate(ctx, "5562999990002")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 0, d.Count)
	}
}

func TestMemoryLimiter_ResetsAtMidnight(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(1, time.UTC)

	day1 := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return day1 }

	require.NoError(t, l.Register(ctx, "5562999990003"))
	d, err := l.Evaluate(ctx, "5562999990003")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	l.now = func() time.Time { return day1.Add(2 * time.Hour) }
	d, err = l.Evaluate(ctx, "5562999990003")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Count)
}

func TestMemoryLimiter_ContactsAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(1, time.UTC)

	require.NoError(t, l.Register(ctx, "5562999990004"))

	d, err := l.Evaluate(ctx, "5562999990005")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_ZeroLimitUsesDefault(t *testing.T) {
	l := NewMemoryLimiter(0, nil)
	d, err := l.Evaluate(context.Background(), "5562999990006")
	require.NoError(t, err)
	assert.Equal(t, DefaultDailyLimit, d.Limit)
}

func TestRedisLimiter_DailyCap(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	l := NewRedisLimiter(client, 3, time.UTC, nil)

	for i := 0; i < 3; i++ {
		d, err := l.Evaluate(ctx, "5562999990010")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "attempt %d should be allowed", i+1)
		require.NoError(t, l.Register(ctx, "5562999990010"))
	}

	d, err := l.Evaluate(ctx, "5562999990010")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 3, d.Count)
}

func TestRedisLimiter_SetsExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	l := NewRedisLimiter(client, 3, time.UTC, nil)
	now := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	require.NoError(t, l.Register(ctx, "5562999990011"))

	key := dayKey("5562999990011", now)
	ttl := mr.TTL(key)
	assert.Equal(t, 2*time.Hour, ttl)
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	l := NewRedisLimiter(client, 1, time.UTC, nil)
	mr.Close()

	d, err := l.Evaluate(ctx, "5562999990012")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	assert.NoError(t, l.Register(ctx, "5562999990012"))
}
