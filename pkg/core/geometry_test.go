package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeometryRecord_Line(t *testing.T) {
	details := []WaypointDetail{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}

	tests := []struct {
		name string
		rec  GeometryRecord
		want []Coordinate
	}{
		{
			name: "waypoints only",
			rec:  GeometryRecord{WaypointDetails: details},
			want: []Coordinate{{Latitude: 1, Longitude: 2}, {Latitude: 3, Longitude: 4}},
		},
		{
			name: "raw path wins",
			rec: GeometryRecord{
				WaypointDetails: details,
				Metadata: GeometryMetadata{RawPath: []PathPoint{
					{Latitude: 1, Longitude: 2, Timestamp: 10},
					{Latitude: 2, Longitude: 3, Timestamp: 20},
					{Latitude: 3, Longitude: 4, Timestamp: 30},
				}},
			},
			want: []Coordinate{{Latitude: 1, Longitude: 2}, {Latitude: 2, Longitude: 3}, {Latitude: 3, Longitude: 4}},
		},
		{
			name: "single raw sample ignored",
			rec: GeometryRecord{
				WaypointDetails: details,
				Metadata:        GeometryMetadata{RawPath: []PathPoint{{Latitude: 9, Longitude: 9}}},
			},
			want: []Coordinate{{Latitude: 1, Longitude: 2}, {Latitude: 3, Longitude: 4}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Line())
		})
	}
}
