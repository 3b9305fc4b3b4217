package redis

import (
	"testing"

	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/northbeam-io/shortlink/internal/domain"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client), mr
}

func TestCache_SetThenGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	target := &domain.CachedTarget{Code: "abc123", Original: "https://example.com/path"}
	err := c.SetWithTTL(ctx, target, time.Minute)
	require.NoError(t, err)

	got, ok, err := c.Get(ctx, "abc123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, target.Original, got.Original)
}

func TestCache_GetMiss(t *testing.T) {
	c, _ := newTestCache(t)
	_, ok, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	target := &domain.CachedTarget{Code: "xyz789", Original: "https://example.com"}
	require.NoError(t, c.SetWithTTL(ctx, target, time.Minute))

	require.NoError(t, c.Invalidate(ctx, "xyz789"))

	_, ok, err := c.Get(ctx, "xyz789")
	require.NoError(t, err)
	require.False(t, ok)
}
