package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRateLimiter(t *testing.T) *RateLimiter {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRateLimiter(client)
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl := newTestRateLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := rl.Allow(ctx, "ip:1.2.3.4", 5, time.Minute)
		require.NoError(t, err)
		require.True(t, allowed)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl := newTestRateLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.Allow(ctx, "ip:5.6.7.8", 2, time.Minute)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, remaining, err := rl.Allow(ctx, "ip:5.6.7.8", 2, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
}

func TestRateLimiter_SeparateKeysIndependent(t *testing.T) {
	rl := newTestRateLimiter(t)
	ctx := context.Background()

	allowed, _, err := rl.Allow(ctx, "ip:1.1.1.1", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, err = rl.Allow(ctx, "ip:2.2.2.2", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)
}
