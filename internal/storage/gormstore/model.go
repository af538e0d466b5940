package gormstore

import (
	"time"

	"gorm.io/datatypes"
)

// Route is the table row for a saved geometry record. The point list and
// metadata are kept as JSON, with the derived columns used for listing.
type Route struct {
	ID                string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt         time.Time `json:"createdAt" gorm:"index"`
	Name              string    `json:"name" gorm:"size:256"`
	Description       string    `json:"description"`
	DrawingMode       string    `json:"drawingMode" gorm:"size:16;index"`
	ActualDrawingMode string    `json:"actualDrawingMode" gorm:"size:16"`
	PointCount        int       `json:"pointCount"`
	LengthMeters      float64   `json:"lengthMeters"`
	EncodedPath       string    `json:"encodedPath"`
	// PathWKT is the drawn line as POINT or LINESTRING text
	PathWKT         string         `json:"pathWkt"`
	WaypointDetails datatypes.JSON `json:"waypointDetails"`
	Metadata        datatypes.JSON `json:"metadata"`
}

// TableName returns the table name for Route
func (*Route) TableName() string {
	return "routes"
}
