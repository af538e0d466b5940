package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/trailmark/routecapture/pkg/core"
	"github.com/wroge/wgs84"
)

// Planar distances are measured in Web Mercator (EPSG:3857) and scaled back to ground
// metres by cos(latitude). Great-circle lengths use the haversine formula.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

const earthRadius = 6371000

var to3857 = wgs84.EPSG().Transform(4326, 3857)

// ValidCoordinate reports whether lat/lng are finite and inside [-90,90]/[-180,180]
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Valid is ValidCoordinate for a core.Coordinate
func Valid(c core.Coordinate) bool {
	return ValidCoordinate(c.Latitude, c.Longitude)
}

// CoordinateFromString parses a string in the format "lat,lng"
func CoordinateFromString(coords string) (core.Coordinate, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	if !ValidCoordinate(lat, lng) {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	return core.Coordinate{Latitude: lat, Longitude: lng}, nil
}

// To3857 projects a WGS84 coordinate to Web Mercator metres
func To3857(c core.Coordinate) (x, y float64) {
	x, y, _ = to3857(c.Longitude, c.Latitude, 0)
	return x, y
}

// SquaredPlanarDistance returns the squared ground distance in square metres between two
// nearby coordinates. Cheap enough to run on every gesture event.
func SquaredPlanarDistance(a, b core.Coordinate) float64 {
	ax, ay := To3857(a)
	bx, by := To3857(b)
	dx, dy := bx-ax, by-ay
	scale := math.Cos((a.Latitude + b.Latitude) / 2 * math.Pi / 180)
	return (dx*dx + dy*dy) * scale * scale
}

// Haversine returns the great-circle distance between two points in metres
func Haversine(a, b core.Coordinate) float64 {
	if a == b {
		return 0
	}
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dlat := lat2 - lat1
	dlon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PathLength sums the haversine length of consecutive segments
func PathLength(points []core.Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1], points[i])
	}
	return total
}
