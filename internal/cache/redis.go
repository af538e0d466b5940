package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trailmark/routecapture/pkg/core"
)

const redisKeyPrefix = "routecapture:place:"

// RedisPlaceCache shares place lookups between engine instances.
type RedisPlaceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPlaceCache wraps an existing client. A zero ttl keeps entries forever.
func NewRedisPlaceCache(client *redis.Client, ttl time.Duration) *RedisPlaceCache {
	return &RedisPlaceCache{client: client, ttl: ttl}
}

// DialRedis connects to addr and verifies the connection with a ping.
func DialRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func redisKey(c core.Coordinate) string {
	return redisKeyPrefix + Key(c)
}

// Get retrieves a place by coordinate. A missing key is a miss, not an error.
func (c *RedisPlaceCache) Get(ctx context.Context, coord core.Coordinate) (core.Place, bool, error) {
	data, err := c.client.Get(ctx, redisKey(coord)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Place{}, false, nil
	}
	if err != nil {
		return core.Place{}, false, fmt.Errorf("redis get: %w", err)
	}

	var p core.Place
	if err := json.Unmarshal(data, &p); err != nil {
		return core.Place{}, false, fmt.Errorf("decoding cached place: %w", err)
	}
	return p, true, nil
}

// Set stores a place by coordinate.
func (c *RedisPlaceCache) Set(ctx context.Context, coord core.Coordinate, place core.Place) error {
	data, err := json.Marshal(place)
	if err != nil {
		return fmt.Errorf("encoding place: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(coord), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
