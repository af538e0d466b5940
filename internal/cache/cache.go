// Package cache de-duplicates reverse geocode lookups for nearby coordinates.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/trailmark/routecapture/pkg/core"
)

// PlaceCache stores reverse geocode results keyed by rounded coordinate.
type PlaceCache interface {
	Get(ctx context.Context, c core.Coordinate) (core.Place, bool, error)
	Set(ctx context.Context, c core.Coordinate, place core.Place) error
}

// Key rounds a coordinate to 5 decimals (about a metre) so that repeated taps on
// the same spot share one lookup.
func Key(c core.Coordinate) string {
	return fmt.Sprintf("%.5f,%.5f", c.Latitude, c.Longitude)
}

// MemoryPlaceCache is a process-local PlaceCache.
type MemoryPlaceCache struct {
	mu     sync.RWMutex
	places map[string]core.Place
}

// NewMemoryPlaceCache creates a new MemoryPlaceCache
func NewMemoryPlaceCache() *MemoryPlaceCache {
	return &MemoryPlaceCache{
		places: make(map[string]core.Place),
	}
}

// Get retrieves a place by coordinate
func (c *MemoryPlaceCache) Get(_ context.Context, coord core.Coordinate) (core.Place, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.places[Key(coord)]
	return p, ok, nil
}

// Set stores a place by coordinate
func (c *MemoryPlaceCache) Set(_ context.Context, coord core.Coordinate, place core.Place) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.places[Key(coord)] = place
	return nil
}

// Len returns the number of cached places
func (c *MemoryPlaceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.places)
}
