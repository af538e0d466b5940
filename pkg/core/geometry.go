// pkg/core/geometry.go
package core

// Persisted drawing modes. Four UI modes fold into these two physical shapes.
const (
	DrawingModePen      = "pen"
	DrawingModeWaypoint = "waypoint"
)

// WaypointDetail is one persisted point of a geometry record
type WaypointDetail struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
}

// GeometryMetadata carries everything that is not part of the point list
type GeometryMetadata struct {
	Pins              []Coordinate   `json:"pins"`
	Options           map[string]any `json:"options"`
	RawPath           []PathPoint    `json:"rawPath,omitempty"`
	ActualDrawingMode string         `json:"actualDrawingMode,omitempty"`
	EncodedPath       string         `json:"encodedPath,omitempty"`
	LengthMeters      float64        `json:"lengthMeters"`
}

// GeometryRecord is the normalized, persisted shape of a captured route.
// It is built once at save time and not mutated afterwards.
type GeometryRecord struct {
	DrawingMode     string           `json:"drawingMode"`
	WaypointDetails []WaypointDetail `json:"waypointDetails"`
	Metadata        GeometryMetadata `json:"metadata"`
}

// Geometry returns the record as a tagged union value.
// Consumers should type-switch on *PenGeometry and *WaypointGeometry.
func (r GeometryRecord) Geometry() Geometry {
	if r.DrawingMode == DrawingModePen {
		return &PenGeometry{
			Waypoints: r.WaypointDetails,
			RawPath:   r.Metadata.RawPath,
		}
	}
	mode := r.Metadata.ActualDrawingMode
	if mode == "" {
		mode = DrawingModeWaypoint
	}
	return &WaypointGeometry{
		Waypoints: r.WaypointDetails,
		UIMode:    mode,
		GPSTrack:  r.Metadata.RawPath,
	}
}

// Line returns the coordinates a route is drawn through: the raw samples when
// there are at least two, the waypoint details otherwise.
func (r GeometryRecord) Line() []Coordinate {
	if len(r.Metadata.RawPath) >= 2 {
		out := make([]Coordinate, len(r.Metadata.RawPath))
		for i, p := range r.Metadata.RawPath {
			out[i] = p.Coordinate()
		}
		return out
	}
	out := make([]Coordinate, len(r.WaypointDetails))
	for i, d := range r.WaypointDetails {
		out[i] = Coordinate{Latitude: d.Lat, Longitude: d.Lng}
	}
	return out
}

// Geometry is implemented by PenGeometry and WaypointGeometry only
type Geometry interface {
	Details() []WaypointDetail
	geometry()
}

// PenGeometry is a freehand drawing: a simplified point list plus the raw samples
// used for faithful re-display.
type PenGeometry struct {
	Waypoints []WaypointDetail
	RawPath   []PathPoint
}

// Details returns the simplified point list
func (g *PenGeometry) Details() []WaypointDetail { return g.Waypoints }

func (*PenGeometry) geometry() {}

// WaypointGeometry is a list of discrete points produced by pin, waypoint or record mode
type WaypointGeometry struct {
	Waypoints []WaypointDetail
	UIMode    string
	// GPSTrack is only set for record mode
	GPSTrack []PathPoint
}

// Details returns the point list
func (g *WaypointGeometry) Details() []WaypointDetail { return g.Waypoints }

func (*WaypointGeometry) geometry() {}
