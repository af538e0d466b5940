package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailmark/routecapture/pkg/core"
)

func TestKey_RoundsToFiveDecimals(t *testing.T) {
	a := core.Coordinate{Latitude: 55.700001, Longitude: 13.190004}
	b := core.Coordinate{Latitude: 55.700004, Longitude: 13.189996}

	assert.Equal(t, "55.70000,13.19000", Key(a))
	assert.Equal(t, Key(a), Key(b))
	assert.NotEqual(t, Key(a), Key(core.Coordinate{Latitude: 55.70002, Longitude: 13.19}))
}

func TestMemoryPlaceCache_SetAndGet(t *testing.T) {
	c := NewMemoryPlaceCache()
	ctx := context.Background()
	coord := core.Coordinate{Latitude: 55.7, Longitude: 13.19}

	_, ok, err := c.Get(ctx, coord)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, coord, core.Place{City: "Lund", Country: "Sweden"}))

	got, ok, err := c.Get(ctx, coord)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Lund", got.City)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryPlaceCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryPlaceCache()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = c.Set(ctx, core.Coordinate{Latitude: float64(n) / 100}, core.Place{Country: "X"})
		}(i)
		go func(n int) {
			defer wg.Done()
			_, _, _ = c.Get(ctx, core.Coordinate{Latitude: float64(n) / 100})
		}(i)
	}

	wg.Wait()
	assert.Equal(t, 100, c.Len())
}
