package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailmark/routecapture/pkg/core"
)

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "routecapture:place:55.70000,13.19000",
		redisKey(core.Coordinate{Latitude: 55.7, Longitude: 13.19}))
}

func TestDialRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := DialRedis(ctx, "127.0.0.1:1", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func TestRedisPlaceCache_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedisPlaceCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, core.Coordinate{Latitude: 1, Longitude: 2})
	require.Error(t, err)
	assert.False(t, ok)

	err = c.Set(ctx, core.Coordinate{Latitude: 1, Longitude: 2}, core.Place{Country: "X"})
	require.Error(t, err)
}

// Runs against a live server when REDIS_ADDR is set.
func TestRedisPlaceCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := DialRedis(ctx, addr, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisPlaceCache(client, time.Minute)
	coord := core.Coordinate{Latitude: 55.70001, Longitude: 13.19001}
	t.Cleanup(func() { client.Del(ctx, redisKey(coord)) })

	require.NoError(t, c.Set(ctx, coord, core.Place{Street: "Stortorget", City: "Lund"}))

	got, ok, err := c.Get(ctx, coord)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Stortorget", got.Street)
}
