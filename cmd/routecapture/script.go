package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/trailmark/routecapture/internal/geo"
	"github.com/trailmark/routecapture/pkg/capture"
	"github.com/trailmark/routecapture/pkg/core"
)

// script is a recorded input session replayed through the engine.
type script struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Options     map[string]any `json:"options"`
	// SettleMs is how long to wait for place names before saving.
	SettleMs int           `json:"settleMs"`
	Events   []scriptEvent `json:"events"`
}

// scriptEvent is one input. AtMs is the offset from the start of the session
// and drives the sampler clock. A coordinate is given either as lat and lng or
// as a "lat,lng" string in Coord.
type scriptEvent struct {
	Type  string   `json:"type"`
	AtMs  int64    `json:"atMs"`
	Mode  string   `json:"mode,omitempty"`
	Lat   *float64 `json:"lat,omitempty"`
	Lng   *float64 `json:"lng,omitempty"`
	Coord string   `json:"coord,omitempty"`
	X     float64  `json:"x,omitempty"`
	Y     float64  `json:"y,omitempty"`
	Phase string   `json:"phase,omitempty"`

	Recording *scriptRecording `json:"recording,omitempty"`
}

// scriptRecording is a GPS recording. RoutePath uses the recorder's
// [[lng,lat(,ts)],...] encoding. EncodedPath is an untimed Google polyline,
// read only when RoutePath is empty.
type scriptRecording struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Waypoints   []core.Waypoint `json:"waypoints"`
	RoutePath   string          `json:"routePath"`
	EncodedPath string          `json:"encodedPath"`
}

func readScript(path string) (*script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	var s script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	return &s, nil
}

func (ev scriptEvent) coordinate() (*core.Coordinate, error) {
	if ev.Coord != "" {
		if ev.Lat != nil || ev.Lng != nil {
			return nil, fmt.Errorf("%s event at %dms sets both coord and lat/lng", ev.Type, ev.AtMs)
		}
		c, err := geo.CoordinateFromString(ev.Coord)
		if err != nil {
			return nil, fmt.Errorf("%s event at %dms: %w", ev.Type, ev.AtMs, err)
		}
		return &c, nil
	}
	if ev.Lat == nil && ev.Lng == nil {
		return nil, nil
	}
	if ev.Lat == nil || ev.Lng == nil {
		return nil, fmt.Errorf("%s event at %dms needs both lat and lng", ev.Type, ev.AtMs)
	}
	return &core.Coordinate{Latitude: *ev.Lat, Longitude: *ev.Lng}, nil
}

func parsePhase(s string) (capture.GesturePhase, error) {
	switch strings.ToLower(s) {
	case "began", "begin", "start":
		return capture.GestureBegan, nil
	case "moved", "move", "":
		return capture.GestureMoved, nil
	case "ended", "end":
		return capture.GestureEnded, nil
	default:
		return 0, fmt.Errorf("unknown gesture phase %q", s)
	}
}

func (r *scriptRecording) route() (core.RecordedRoute, error) {
	route := core.RecordedRoute{
		Name:        r.Name,
		Description: r.Description,
		Waypoints:   r.Waypoints,
	}
	switch {
	case r.RoutePath != "":
		path, err := geo.ParseRoutePath(r.RoutePath)
		if err != nil {
			return core.RecordedRoute{}, fmt.Errorf("parsing route path: %w", err)
		}
		route.RoutePath = path
	case r.EncodedPath != "":
		coords, err := geo.DecodePolyline(r.EncodedPath)
		if err != nil {
			return core.RecordedRoute{}, fmt.Errorf("decoding route path: %w", err)
		}
		route.RoutePath = make([]core.PathPoint, len(coords))
		for i, c := range coords {
			route.RoutePath[i] = core.PathPoint{Latitude: c.Latitude, Longitude: c.Longitude}
		}
	}
	return route, nil
}

// scriptClock reports the time of the event being replayed.
type scriptClock struct {
	mu    sync.Mutex
	start time.Time
	at    time.Duration
}

func (c *scriptClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(c.at)
}

func (c *scriptClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = time.Duration(ms) * time.Millisecond
}
