package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T) (Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return Limiter{Client: client, Prefix: "pricing:rl:"}, mr
}

func TestLimiterSlidingWindow(t *testing.T) {
	limiter, mr := newLimiter(t)
	ctx := context.Background()
	window := 2 * time.Second

	for i := 0; i < 3; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "customer:1001", window, 3)
		require.NoError(t, err)
		require.True(t, allowed, "request %d within the limit", i+1)
		require.Equal(t, 3-(i+1), remaining)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "customer:1001", window, 3)
	require.NoError(t, err)
	require.False(t, allowed, "fourth request in the window is over the limit")
	require.Zero(t, remaining)

	mr.FastForward(window)

	allowed, _, _, err = limiter.Allow(ctx, "customer:1001", window, 3)
	require.NoError(t, err)
	require.True(t, allowed, "window slid past the burst")
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter, _ := newLimiter(t)
	ctx := context.Background()

	allowed, _, _, err := limiter.Allow(ctx, "customer:1001", time.Second, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, _, err = limiter.Allow(ctx, "customer:1001", time.Second, 1)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, _, _, err = limiter.Allow(ctx, "customer:2002", time.Second, 1)
	require.NoError(t, err)
	require.True(t, allowed, "one customer's burst must not throttle another")
}

func TestLimiterDisabled(t *testing.T) {
	ctx := context.Background()

	allowed, _, _, err := Limiter{}.Allow(ctx, "anything", time.Second, 5)
	require.NoError(t, err)
	require.True(t, allowed, "nil client disables limiting")

	limiter, _ := newLimiter(t)
	allowed, _, _, err = limiter.Allow(ctx, "anything", time.Second, 0)
	require.NoError(t, err)
	require.True(t, allowed, "non-positive max disables limiting")
}
