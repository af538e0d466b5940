// pkg/core/route.go
package core

import (
	"errors"
	"time"
)

// ErrRouteNotFound is returned by storage backends for unknown route ids
var ErrRouteNotFound = errors.New("route not found")

// StoredRoute is a persisted geometry record with its form fields
type StoredRoute struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"createdAt"`
	Record      GeometryRecord `json:"record"`
}

// Summary returns the listing view of the route
func (r StoredRoute) Summary() RouteSummary {
	mode := r.Record.Metadata.ActualDrawingMode
	if mode == "" {
		mode = r.Record.DrawingMode
	}
	return RouteSummary{
		ID:           r.ID,
		Name:         r.Name,
		DrawingMode:  mode,
		Points:       len(r.Record.WaypointDetails),
		LengthMeters: r.Record.Metadata.LengthMeters,
		CreatedAt:    r.CreatedAt,
	}
}

// RouteSummary is one line of a route listing
type RouteSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DrawingMode  string    `json:"drawingMode"`
	Points       int       `json:"points"`
	LengthMeters float64   `json:"lengthMeters"`
	CreatedAt    time.Time `json:"createdAt"`
}
