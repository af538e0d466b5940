// Package serializer turns a capture state into the geometry record that gets
// persisted. It runs once, at save time.
package serializer

import (
	"fmt"
	"maps"

	"github.com/trailmark/routecapture/internal/geo"
	"github.com/trailmark/routecapture/pkg/core"
)

// DefaultMaxWaypoints is the waypoint cap used when Options leaves it unset.
const DefaultMaxWaypoints = 8

// Options carries the caller's form options and limits.
type Options struct {
	// Options is copied into the record metadata.
	Options      map[string]any
	MaxWaypoints int
}

// Serialize validates state and builds its geometry record. Validation
// failures are returned as *ValidationError.
func Serialize(state core.CaptureState, opts Options) (core.GeometryRecord, error) {
	if opts.MaxWaypoints <= 0 {
		opts.MaxWaypoints = DefaultMaxWaypoints
	}

	valid := validWaypoints(state.Waypoints)
	if err := validate(state, valid, opts); err != nil {
		return core.GeometryRecord{}, err
	}

	meta := core.GeometryMetadata{
		Pins:    []core.Coordinate{},
		Options: copyOptions(opts.Options),
	}

	if state.Mode == core.ModePen {
		details := make([]core.WaypointDetail, len(state.PathPoints))
		coords := make([]core.Coordinate, len(state.PathPoints))
		for i, p := range state.PathPoints {
			details[i] = core.WaypointDetail{
				Lat:   p.Latitude,
				Lng:   p.Longitude,
				Title: fmt.Sprintf("Waypoint %d", i+1),
			}
			coords[i] = p.Coordinate()
		}
		meta.RawPath = append([]core.PathPoint(nil), state.PathPoints...)
		meta.EncodedPath = geo.EncodePolyline(coords)
		meta.LengthMeters = geo.PathLength(coords)

		return core.GeometryRecord{
			DrawingMode:     core.DrawingModePen,
			WaypointDetails: details,
			Metadata:        meta,
		}, nil
	}

	if state.Mode == core.ModePin {
		// pin mode holds one waypoint; the latest one wins if more slipped in
		valid = valid[len(valid)-1:]
		meta.Pins = []core.Coordinate{valid[0].Coordinate()}
	}

	details := make([]core.WaypointDetail, len(valid))
	coords := make([]core.Coordinate, len(valid))
	for i, w := range valid {
		details[i] = core.WaypointDetail{
			Lat:         w.Latitude,
			Lng:         w.Longitude,
			Title:       w.Title,
			Description: w.Description,
		}
		coords[i] = w.Coordinate()
	}

	if state.Mode == core.ModeRecord && len(state.RecordedPath) > 0 {
		meta.RawPath = append([]core.PathPoint(nil), state.RecordedPath...)
		track := make([]core.Coordinate, len(state.RecordedPath))
		for i, p := range state.RecordedPath {
			track[i] = p.Coordinate()
		}
		coords = track
	}

	meta.ActualDrawingMode = state.Mode.String()
	meta.EncodedPath = geo.EncodePolyline(coords)
	meta.LengthMeters = geo.PathLength(coords)

	return core.GeometryRecord{
		DrawingMode:     core.DrawingModeWaypoint,
		WaypointDetails: details,
		Metadata:        meta,
	}, nil
}

func validate(state core.CaptureState, valid []core.Waypoint, opts Options) error {
	mode := state.Mode
	if state.DrawingActive {
		return invalid(mode, ErrUnfinishedDrawing, "Finish your drawing before saving the route.")
	}

	switch mode {
	case core.ModePen:
		if len(state.PathPoints) < 2 {
			return invalid(mode, ErrInsufficientPoints, "Draw at least two points before saving the route.")
		}
	case core.ModePin:
		if len(valid) == 0 {
			return invalid(mode, ErrInsufficientPoints, "Drop a pin on the map before saving.")
		}
	case core.ModeWaypoint:
		if len(valid) < 2 {
			return invalid(mode, ErrInsufficientPoints, "Add at least two waypoints to create a route.")
		}
		if len(valid) > opts.MaxWaypoints {
			return invalid(mode, ErrTooManyWaypoints,
				fmt.Sprintf("A route can have at most %d waypoints.", opts.MaxWaypoints))
		}
	case core.ModeRecord:
		if !state.RecordingApplied || len(valid) == 0 {
			return invalid(mode, ErrEmptyRecording, "Record a route before saving.")
		}
		if len(valid) == 1 {
			return invalid(mode, ErrInsufficientPoints, "The recording needs at least two points.")
		}
	default:
		return fmt.Errorf("unknown drawing mode %v", mode)
	}
	return nil
}

func validWaypoints(waypoints []core.Waypoint) []core.Waypoint {
	out := make([]core.Waypoint, 0, len(waypoints))
	for _, w := range waypoints {
		if geo.Valid(w.Coordinate()) {
			out = append(out, w)
		}
	}
	return out
}

func copyOptions(opts map[string]any) map[string]any {
	out := make(map[string]any, len(opts))
	maps.Copy(out, opts)
	return out
}
