package capture

import (
	"github.com/trailmark/routecapture/internal/sampler"
	"github.com/trailmark/routecapture/pkg/core"
)

// GesturePhase is the stage of a drag gesture.
type GesturePhase int

const (
	GestureBegan GesturePhase = iota
	GestureMoved
	GestureEnded
)

func (p GesturePhase) String() string {
	switch p {
	case GestureBegan:
		return "began"
	case GestureMoved:
		return "moved"
	case GestureEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// GestureEvent is one sample of a drag on the map. Coordinate is set when the
// map already resolved the touch location; otherwise the screen point is
// converted by the sampler.
type GestureEvent struct {
	Phase      GesturePhase
	Screen     sampler.ScreenPoint
	Coordinate *core.Coordinate
}
