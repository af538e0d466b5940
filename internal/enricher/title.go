package enricher

import (
	"fmt"
	"regexp"

	"github.com/trailmark/routecapture/pkg/core"
)

// SyntheticTitle is the title a waypoint carries until a place name is known.
// n is 1-based.
func SyntheticTitle(n int, c core.Coordinate) string {
	return fmt.Sprintf("Waypoint %d (%.5f, %.5f)", n, c.Latitude, c.Longitude)
}

// Title formats a place as "Street, City", falling back to "City, Country",
// then whichever single part is known. Returns "" for an empty place.
func Title(p core.Place) string {
	switch {
	case p.Street != "" && p.City != "":
		return p.Street + ", " + p.City
	case p.City != "" && p.Country != "":
		return p.City + ", " + p.Country
	case p.City != "":
		return p.City
	case p.Country != "":
		return p.Country
	default:
		return p.Street
	}
}

var syntheticTitle = regexp.MustCompile(`^Waypoint \d+ \(-?\d+\.\d{5}, -?\d+\.\d{5}\)$`)

// IsSynthetic reports whether title is still the placeholder from SyntheticTitle.
func IsSynthetic(title string) bool {
	return syntheticTitle.MatchString(title)
}
