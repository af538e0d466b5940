// Package export renders saved routes in external formats.
package export

import (
	"io"

	"github.com/twpayne/go-kml"

	"github.com/trailmark/routecapture/pkg/core"
)

// WriteKML writes the route as a KML document: one placemark per waypoint
// detail, plus a line for the path. Pen and record routes draw the line through
// their raw samples, other routes through the waypoints.
func WriteKML(w io.Writer, route core.StoredRoute) error {
	rec := route.Record

	var children []kml.Element
	children = append(children, kml.Name(route.Name))
	if route.Description != "" {
		children = append(children, kml.Description(route.Description))
	}

	for _, d := range rec.WaypointDetails {
		pm := []kml.Element{
			kml.Name(d.Title),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: d.Lng, Lat: d.Lat})),
		}
		if d.Description != "" {
			pm = append(pm, kml.Description(d.Description))
		}
		children = append(children, kml.Placemark(pm...))
	}

	if line := lineCoordinates(rec); len(line) >= 2 {
		children = append(children, kml.Placemark(
			kml.Name(route.Name+" path"),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(line...),
			),
		))
	}

	return kml.KML(kml.Document(children...)).WriteIndent(w, "", "  ")
}

func lineCoordinates(rec core.GeometryRecord) []kml.Coordinate {
	line := rec.Line()
	out := make([]kml.Coordinate, len(line))
	for i, c := range line {
		out[i] = kml.Coordinate{Lon: c.Longitude, Lat: c.Latitude}
	}
	return out
}
