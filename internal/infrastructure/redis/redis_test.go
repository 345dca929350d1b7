package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*CounterCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewCounterCache(client, "unread:", 5*time.Second), mr
}

func TestCounterCache_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache, mr := newCache(t)

	_, ok, err := cache.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "u1", 3))
	assert.True(t, mr.Exists("unread:u1"))

	v, ok, err := cache.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)

	require.NoError(t, cache.Delete(ctx, "u1"))
	_, ok, err = cache.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCounterCache_Expires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache, mr := newCache(t)

	require.NoError(t, cache.Set(ctx, "u1", 1))
	mr.FastForward(6 * time.Second)

	_, ok, err := cache.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCounterCache_CorruptValue(t *testing.T) {
	t.Parallel()

	cache, mr := newCache(t)
	require.NoError(t, mr.Set("unread:u1", "not-a-number"))

	_, _, err := cache.Get(context.Background(), "u1")
	require.ErrorContains(t, err, "parse unread:u1")
}

func TestNewClient_PingFailure(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), Config{Addr: addr})
	require.ErrorContains(t, err, "failed to ping redis")
}
