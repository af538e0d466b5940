// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trailmark/routecapture/internal/config"
	"github.com/trailmark/routecapture/pkg/core"
)

// Backend keeps routes in memory and, when OutputDir is set, writes each saved
// route to its own JSON file so that later runs can list it.
type Backend struct {
	cfg    config.MemoryConfig
	routes map[string]core.StoredRoute
	now    func() time.Time

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		routes: make(map[string]core.StoredRoute),
		now:    time.Now,
	}
}

// Init loads routes exported by earlier runs
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	routes, err := loadDir(b.cfg.OutputDir)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range routes {
		b.routes[r.ID] = r
	}
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// SaveRoute stores the record under a new id
func (b *Backend) SaveRoute(_ context.Context, rec core.GeometryRecord, form core.RouteForm) (string, error) {
	route := core.StoredRoute{
		ID:          uuid.NewString(),
		Name:        form.Name,
		Description: form.Description,
		CreatedAt:   b.now().UTC(),
		Record:      rec,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir != "" {
		path, err := b.exportJSON(route)
		if err != nil {
			return "", fmt.Errorf("exporting route: %w", err)
		}
		b.lastExportPath = path
	}

	b.routes[route.ID] = route
	return route.ID, nil
}

// GetRoute returns a stored route by id
func (b *Backend) GetRoute(_ context.Context, id string) (core.StoredRoute, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.routes[id]
	if !ok {
		return core.StoredRoute{}, fmt.Errorf("%w: %s", core.ErrRouteNotFound, id)
	}
	return r, nil
}

// ListRoutes returns route summaries, newest first
func (b *Backend) ListRoutes(_ context.Context) ([]core.RouteSummary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.RouteSummary, 0, len(b.routes))
	for _, r := range b.routes {
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetExportedFilePath returns the file written by the last save
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
