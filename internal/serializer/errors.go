package serializer

import (
	"errors"

	"github.com/trailmark/routecapture/pkg/core"
)

var (
	// ErrUnfinishedDrawing means a pen drawing is still in progress.
	ErrUnfinishedDrawing = errors.New("drawing not finished")
	// ErrInsufficientPoints means the mode's minimum point count is not met.
	ErrInsufficientPoints = errors.New("not enough points")
	// ErrTooManyWaypoints means the waypoint cap is exceeded.
	ErrTooManyWaypoints = errors.New("too many waypoints")
	// ErrEmptyRecording means record mode captured nothing.
	ErrEmptyRecording = errors.New("empty recording")
)

// ValidationError is a save-time rejection with a message meant for the user.
type ValidationError struct {
	Mode    core.Mode
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(mode core.Mode, err error, msg string) *ValidationError {
	return &ValidationError{Mode: mode, Message: msg, Err: err}
}
