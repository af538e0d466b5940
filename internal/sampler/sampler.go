// Package sampler turns a high-frequency gesture stream into a sparse path.
//
// The Sampler also owns the pen sub-machine: a path is either idle (finished or
// never started) or being drawn. Callers derive "drawing active" from Drawing()
// and keep no flag of their own.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trailmark/routecapture/internal/geo"
	"github.com/trailmark/routecapture/pkg/core"
)

// ErrNoAnchor is returned when a screen point cannot be converted because no
// coordinate is known yet to offset from.
var ErrNoAnchor = errors.New("no anchor coordinate for screen conversion")

// MapSurface converts pixel locations on the rendered map to coordinates.
type MapSurface interface {
	ScreenPointToCoordinate(ctx context.Context, x, y float64) (core.Coordinate, error)
}

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
}

// ScreenPoint is a pixel location on the map surface.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Config holds the sampling thresholds.
type Config struct {
	MinDistanceMeters float64
	MinInterval       time.Duration
	// FallbackScale is degrees per pixel used when the map surface cannot convert.
	FallbackScale float64
}

// DefaultConfig returns the tuned defaults: 2 m, 50 ms, 1e-5 degrees per pixel.
func DefaultConfig() Config {
	return Config{
		MinDistanceMeters: 2,
		MinInterval:       50 * time.Millisecond,
		FallbackScale:     1e-5,
	}
}

type penState int

const (
	penIdle penState = iota
	penDrawing
)

// Conversion is a screen point with the coordinate applied immediately while
// the map surface lookup is pending.
type Conversion struct {
	Screen   ScreenPoint
	Fallback core.Coordinate
}

// Sampler is not safe for concurrent use, except for Resolve.
type Sampler struct {
	cfg     Config
	surface MapSurface
	logger  Logger

	state        penState
	points       []core.PathPoint
	lastRetained time.Time

	hasAnchor    bool
	anchorScreen ScreenPoint
	anchorCoord  core.Coordinate
}

// New creates a Sampler. surface may be nil, in which case every conversion
// uses the linear fallback.
func New(cfg Config, surface MapSurface, logger Logger) *Sampler {
	if cfg.FallbackScale == 0 {
		cfg.FallbackScale = DefaultConfig().FallbackScale
	}
	return &Sampler{
		cfg:     cfg,
		surface: surface,
		logger:  logger,
	}
}

// Start begins a new path with one point, discarding any previous path.
func (s *Sampler) Start(c core.Coordinate, now time.Time) {
	s.points = []core.PathPoint{pathPoint(c, now)}
	s.lastRetained = now
	s.state = penDrawing
}

// AddPoint appends c if it is far enough from, and late enough after, the last
// retained point. Returns whether the point was retained.
func (s *Sampler) AddPoint(c core.Coordinate, now time.Time) bool {
	if s.state != penDrawing || len(s.points) == 0 {
		return false
	}
	if now.Sub(s.lastRetained) < s.cfg.MinInterval {
		return false
	}
	return s.appendIfFar(c, now)
}

// Tap handles a deliberate press: it starts a path when idle and otherwise
// appends with the distance filter only.
func (s *Sampler) Tap(c core.Coordinate, now time.Time) bool {
	if s.state != penDrawing || len(s.points) == 0 {
		s.Start(c, now)
		return true
	}
	return s.appendIfFar(c, now)
}

func (s *Sampler) appendIfFar(c core.Coordinate, now time.Time) bool {
	last := s.points[len(s.points)-1].Coordinate()
	minDist := s.cfg.MinDistanceMeters
	if geo.SquaredPlanarDistance(last, c) <= minDist*minDist {
		return false
	}
	s.points = append(s.points, pathPoint(c, now))
	s.lastRetained = now
	return true
}

func pathPoint(c core.Coordinate, now time.Time) core.PathPoint {
	return core.PathPoint{Latitude: c.Latitude, Longitude: c.Longitude, Timestamp: now.UnixMilli()}
}

// Drawing reports whether a path is being drawn.
func (s *Sampler) Drawing() bool {
	return s.state == penDrawing
}

// Finish moves the sub-machine to idle and keeps the points.
func (s *Sampler) Finish() {
	s.state = penIdle
	s.hasAnchor = false
}

// Reset discards the path and returns to idle.
func (s *Sampler) Reset() {
	s.state = penIdle
	s.points = nil
	s.lastRetained = time.Time{}
	s.hasAnchor = false
}

// Points returns a copy of the path.
func (s *Sampler) Points() []core.PathPoint {
	return append([]core.PathPoint(nil), s.points...)
}

// Len returns the number of retained points.
func (s *Sampler) Len() int {
	return len(s.points)
}

// Anchor records a screen point whose coordinate is known. Later fallback
// conversions offset from it.
func (s *Sampler) Anchor(sp ScreenPoint, c core.Coordinate) {
	s.hasAnchor = true
	s.anchorScreen = sp
	s.anchorCoord = c
}

// ConvertScreenToCoordinate computes the fallback coordinate for sp from the
// last anchor (y grows downwards on screen) and moves the anchor to sp. The
// precise coordinate, if the map surface can provide one, comes from Resolve.
func (s *Sampler) ConvertScreenToCoordinate(sp ScreenPoint) (Conversion, error) {
	if !s.hasAnchor {
		return Conversion{}, ErrNoAnchor
	}
	scale := s.cfg.FallbackScale
	c := core.Coordinate{
		Latitude:  s.anchorCoord.Latitude - scale*(sp.Y-s.anchorScreen.Y),
		Longitude: s.anchorCoord.Longitude + scale*(sp.X-s.anchorScreen.X),
	}
	s.Anchor(sp, c)
	return Conversion{Screen: sp, Fallback: c}, nil
}

// HasSurface reports whether a map surface is wired.
func (s *Sampler) HasSurface() bool {
	return s.surface != nil
}

// Resolve asks the map surface for the coordinate of conv.Screen. On failure
// it returns the fallback together with the error. Resolve reads only immutable
// fields and may run off the event goroutine.
func (s *Sampler) Resolve(ctx context.Context, conv Conversion) (core.Coordinate, error) {
	if s.surface == nil {
		return conv.Fallback, errors.New("map surface not ready")
	}
	c, err := s.surface.ScreenPointToCoordinate(ctx, conv.Screen.X, conv.Screen.Y)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("screen conversion failed, keeping fallback", "x", conv.Screen.X, "y", conv.Screen.Y, "error", err)
		}
		return conv.Fallback, fmt.Errorf("converting screen point: %w", err)
	}
	if !geo.Valid(c) {
		return conv.Fallback, fmt.Errorf("converting screen point: %w", geo.ErrInvalidCoordinates)
	}
	return c, nil
}

// Supersede replaces the point at index with precise if it still holds the
// fallback coordinate it was created with. Returns whether it was replaced.
func (s *Sampler) Supersede(index int, fallback, precise core.Coordinate) bool {
	if index < 0 || index >= len(s.points) {
		return false
	}
	p := s.points[index]
	if p.Coordinate() != fallback {
		return false
	}
	p.Latitude, p.Longitude = precise.Latitude, precise.Longitude
	s.points[index] = p
	if s.hasAnchor && s.anchorCoord == fallback {
		s.anchorCoord = precise
	}
	return true
}
