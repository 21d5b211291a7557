package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Names []string `json:"names"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, time.Minute), mr
}

func TestSetGetDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KeyTeams, payload{Names: []string{"Eagles", "Bears"}}))
	assert.True(t, mr.Exists(KeyTeams))
	assert.Equal(t, time.Minute, mr.TTL(KeyTeams))

	var got payload
	found, err := c.Get(ctx, KeyTeams, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"Eagles", "Bears"}, got.Names)

	require.NoError(t, c.Delete(ctx, KeyTeams))
	found, err = c.Get(ctx, KeyTeams, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KeyResults, payload{}))
	mr.FastForward(2 * time.Minute)

	found, err := c.Get(ctx, KeyResults, &payload{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRemember(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	calls := 0
	load := func() (payload, error) {
		calls++
		return payload{Names: []string{"Lions"}}, nil
	}

	first, cached, err := Remember(ctx, c, KeyDashboard, load)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []string{"Lions"}, first.Names)

	second, cached, err := Remember(ctx, c, KeyDashboard, load)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	c.Invalidate(ctx, KeyDashboard)
	_, cached, err = Remember(ctx, c, KeyDashboard, load)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, calls)
}

func TestRememberLoadError(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("boom")

	_, _, err := Remember(context.Background(), c, KeyTeams, func() (payload, error) { return payload{}, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(KeyTeams))
}

func TestDisabledCache(t *testing.T) {
	c := New(nil, time.Minute)
	ctx := context.Background()

	assert.False(t, c.Enabled())
	require.NoError(t, c.Set(ctx, KeyTeams, payload{}))
	found, err := c.Get(ctx, KeyTeams, &payload{})
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, c.Delete(ctx, KeyTeams))

	calls := 0
	for i := 0; i < 2; i++ {
		_, cached, err := Remember(ctx, c, KeyTeams, func() (int, error) { calls++; return calls, nil })
		require.NoError(t, err)
		assert.False(t, cached)
	}
	assert.Equal(t, 2, calls)
}

func TestRedisDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	c := New(rdb, time.Minute)

	value, cached, err := Remember(context.Background(), c, KeyTeams, func() (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "fresh", value)
}
