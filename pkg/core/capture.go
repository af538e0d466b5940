// pkg/core/capture.go
package core

import (
	"fmt"
	"strings"
)

// Coordinate is a WGS84 latitude/longitude pair
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Waypoint is a named point of a route. Its identity is its index in the sequence.
type Waypoint struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
}

// Coordinate returns the waypoint position
func (w Waypoint) Coordinate() Coordinate {
	return Coordinate{Latitude: w.Latitude, Longitude: w.Longitude}
}

// PathPoint is a raw sample of a drawn or recorded path.
// Timestamp is unix milliseconds, zero when unknown.
type PathPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// Coordinate returns the sample position
func (p PathPoint) Coordinate() Coordinate {
	return Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}

// Mode is the active route-authoring interaction style
type Mode int

const (
	ModePin Mode = iota
	ModeWaypoint
	ModePen
	ModeRecord
)

// String returns the lowercase mode name used in logs and metadata
func (m Mode) String() string {
	switch m {
	case ModePin:
		return "pin"
	case ModeWaypoint:
		return "waypoint"
	case ModePen:
		return "pen"
	case ModeRecord:
		return "record"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name into a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pin":
		return ModePin, nil
	case "waypoint", "waypoints":
		return ModeWaypoint, nil
	case "pen", "draw":
		return ModePen, nil
	case "record", "gps":
		return ModeRecord, nil
	default:
		return ModePin, fmt.Errorf("unknown drawing mode: %q", s)
	}
}

// CaptureState is a point-in-time copy of the route being authored
type CaptureState struct {
	Mode          Mode
	Waypoints     []Waypoint
	Undone        []Waypoint
	PathPoints    []PathPoint
	DrawingActive bool
	Generation    uint64
	// RecordedPath holds the GPS track delivered by the recording collaborator
	RecordedPath []PathPoint
	// RecordingApplied is set once a recording was applied in record mode
	RecordingApplied bool
}

// Place is the result of a reverse geocode lookup
type Place struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// Empty reports whether the lookup produced nothing usable
func (p Place) Empty() bool {
	return p.Street == "" && p.City == "" && p.Country == ""
}

// RecordedRoute is the bundle handed over when GPS recording completes
type RecordedRoute struct {
	Waypoints   []Waypoint  `json:"waypoints"`
	RoutePath   []PathPoint `json:"routePath"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
}

// RouteForm holds the non-geometry fields saved alongside a geometry record
type RouteForm struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Options     map[string]any `json:"options,omitempty"`
}
