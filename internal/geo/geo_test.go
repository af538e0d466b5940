package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trailmark/routecapture/pkg/core"
)

func TestValidCoordinate(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		want     bool
	}{
		{"origin", 0, 0, true},
		{"lund", 55.70, 13.19, true},
		{"poles and antimeridian", 90, -180, true},
		{"latitude too high", 90.0001, 0, false},
		{"latitude too low", -91, 0, false},
		{"longitude too high", 0, 180.5, false},
		{"NaN latitude", math.NaN(), 0, false},
		{"NaN longitude", 0, math.NaN(), false},
		{"infinite", math.Inf(1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCoordinate(tt.lat, tt.lng))
		})
	}
}

func TestCoordinateFromString_Valid(t *testing.T) {
	c, err := CoordinateFromString("55.70, 13.19")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Latitude != 55.70 {
		t.Errorf("expected Latitude=55.70, got %f", c.Latitude)
	}
	if c.Longitude != 13.19 {
		t.Errorf("expected Longitude=13.19, got %f", c.Longitude)
	}
}

func TestCoordinateFromString_Invalid(t *testing.T) {
	for _, input := range []string{"", "55.70", "abc,13.19", "55.70,xyz", "95,13"} {
		_, err := CoordinateFromString(input)
		if !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("input %q: expected ErrInvalidCoordinates, got %v", input, err)
		}
	}
}

func TestSquaredPlanarDistance_Identical(t *testing.T) {
	c := core.Coordinate{Latitude: 55.70, Longitude: 13.19}
	assert.Equal(t, 0.0, SquaredPlanarDistance(c, c))
}

func TestSquaredPlanarDistance_MatchesHaversineForShortSegments(t *testing.T) {
	a := core.Coordinate{Latitude: 55.70, Longitude: 13.19}
	b := core.Coordinate{Latitude: 55.7001, Longitude: 13.1901}

	planar := math.Sqrt(SquaredPlanarDistance(a, b))
	great := Haversine(a, b)

	assert.InDelta(t, great, planar, 0.05*great)
}

func TestHaversine_KnownDistance(t *testing.T) {
	// one degree of latitude is roughly 111.2 km
	d := Haversine(core.Coordinate{Latitude: 0, Longitude: 0}, core.Coordinate{Latitude: 1, Longitude: 0})
	assert.InDelta(t, 111195, d, 100)
}

func TestPathLength(t *testing.T) {
	points := []core.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 1, Longitude: 0},
		{Latitude: 2, Longitude: 0},
	}
	assert.InDelta(t, 2*111195, PathLength(points), 200)
	assert.Equal(t, 0.0, PathLength(points[:1]))
	assert.Equal(t, 0.0, PathLength(nil))
}
