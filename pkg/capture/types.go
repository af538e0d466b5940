package capture

import (
	ctl "github.com/trailmark/routecapture/internal/capture"
	"github.com/trailmark/routecapture/internal/dispatcher"
	"github.com/trailmark/routecapture/internal/sampler"
	"github.com/trailmark/routecapture/internal/serializer"
)

// Input and feedback types shared with the controller.
type (
	Notice       = ctl.Notice
	GesturePhase = ctl.GesturePhase
	GestureEvent = ctl.GestureEvent
	ScreenPoint  = sampler.ScreenPoint
	MapSurface   = sampler.MapSurface

	ValidationError = serializer.ValidationError
)

const (
	NoticeAccepted         = ctl.NoticeAccepted
	NoticeDropped          = ctl.NoticeDropped
	NoticeFiltered         = ctl.NoticeFiltered
	NoticeIgnored          = ctl.NoticeIgnored
	NoticeApproachingLimit = ctl.NoticeApproachingLimit
	NoticeLimitReached     = ctl.NoticeLimitReached

	GestureBegan = ctl.GestureBegan
	GestureMoved = ctl.GestureMoved
	GestureEnded = ctl.GestureEnded
)

// Validation sentinels, for errors.Is on Serialize and Save results.
var (
	ErrUnfinishedDrawing  = serializer.ErrUnfinishedDrawing
	ErrInsufficientPoints = serializer.ErrInsufficientPoints
	ErrTooManyWaypoints   = serializer.ErrTooManyWaypoints
	ErrEmptyRecording     = serializer.ErrEmptyRecording

	ErrNoPathPoints  = ctl.ErrNoPathPoints
	ErrNotRecordMode = ctl.ErrNotRecordMode
)

// ErrClosed is returned by every Engine method after Close.
var ErrClosed = dispatcher.ErrClosed
