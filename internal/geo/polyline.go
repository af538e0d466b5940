package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/trailmark/routecapture/pkg/core"
	"github.com/twpayne/go-polyline"
)

// ParseRoutePath parses a JSON array of GPS samples into path points.
// Input format: "[[lng,lat],[lng,lat,ts],...]" with ts in unix milliseconds.
func ParseRoutePath(input string) ([]core.PathPoint, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse route path JSON: %w", err)
	}

	path := make([]core.PathPoint, 0, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		p := core.PathPoint{Longitude: coord[0], Latitude: coord[1]}
		if len(coord) > 2 {
			p.Timestamp = int64(coord[2])
		}
		path = append(path, p)
	}

	return path, nil
}

// LineString builds a planar line string (x=lng, y=lat) from a coordinate sequence
func LineString(points []core.Coordinate) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("line string must have at least 2 points, got %d", len(points))
	}

	flatCoords := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flatCoords = append(flatCoords, p.Longitude, p.Latitude)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// WKT returns the OGC well-known text for a route: a POINT for a single coordinate,
// a LINESTRING otherwise. Empty input yields an empty string.
func WKT(points []core.Coordinate) string {
	switch len(points) {
	case 0:
		return ""
	case 1:
		pt := geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: points[0].Longitude, Y: points[0].Latitude},
			Type: geom.DimXY,
		})
		return pt.AsText()
	}
	ls, err := LineString(points)
	if err != nil {
		return ""
	}
	return ls.AsText()
}

// EncodePolyline encodes coordinates with Google's polyline algorithm (precision 1e5)
func EncodePolyline(points []core.Coordinate) string {
	if len(points) == 0 {
		return ""
	}
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline decodes a Google polyline string into coordinates
func DecodePolyline(encoded string) ([]core.Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}
	points := make([]core.Coordinate, len(coords))
	for i, c := range coords {
		if !ValidCoordinate(c[0], c[1]) {
			return nil, ErrInvalidCoordinates
		}
		points[i] = core.Coordinate{Latitude: c[0], Longitude: c[1]}
	}
	return points, nil
}
