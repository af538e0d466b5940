// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/trailmark/routecapture/pkg/core"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveRoute persists a geometry record with its form fields and returns the new id
	SaveRoute(ctx context.Context, rec core.GeometryRecord, form core.RouteForm) (string, error)
	// GetRoute returns core.ErrRouteNotFound for unknown ids
	GetRoute(ctx context.Context, id string) (core.StoredRoute, error)
	// ListRoutes returns summaries, newest first
	ListRoutes(ctx context.Context) ([]core.RouteSummary, error)
}
