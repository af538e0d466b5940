// Package capture holds the authoritative state of a route being authored and
// dispatches map input to the history store and the path sampler by mode.
//
// A Controller is not safe for concurrent use. Every method, including the
// callbacks it posts to itself, must run on the event goroutine.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trailmark/routecapture/internal/enricher"
	"github.com/trailmark/routecapture/internal/geo"
	"github.com/trailmark/routecapture/internal/history"
	"github.com/trailmark/routecapture/internal/sampler"
	"github.com/trailmark/routecapture/pkg/core"
)

var (
	// ErrNoPathPoints is returned by FinishPenDrawing when nothing was drawn.
	ErrNoPathPoints = errors.New("no path points to finish")
	// ErrNotRecordMode is returned by ApplyRecording outside record mode.
	ErrNotRecordMode = errors.New("recording can only be applied in record mode")
)

// Labels given to waypoints converted from a pen path.
const (
	drawingStartTitle = "Drawing Start"
	drawingEndTitle   = "Drawing End"
)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
}

// Poster queues a task on the event goroutine.
type Poster interface {
	Post(name string, fn func()) error
}

// Enricher schedules place name lookups for waypoints.
type Enricher interface {
	Enrich(generation uint64, index int, coord core.Coordinate)
	Cancel(generation uint64)
}

// Config holds the waypoint caps and the screen conversion timeout.
type Config struct {
	SoftWaypointLimit int
	MaxWaypoints      int
	ConversionTimeout time.Duration
}

// DefaultConfig returns a soft limit of 5 and a hard cap of 8 waypoints.
func DefaultConfig() Config {
	return Config{
		SoftWaypointLimit: 5,
		MaxWaypoints:      8,
		ConversionTimeout: 2 * time.Second,
	}
}

// Option configures the controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller owns the capture state.
type Controller struct {
	cfg      Config
	sampler  *sampler.Sampler
	enricher Enricher
	poster   Poster
	logger   Logger
	now      func() time.Time

	mode         core.Mode
	waypoints    *history.Store[core.Waypoint]
	recordedPath []core.PathPoint
	generation   uint64

	recordingApplied bool
}

// New creates a Controller in pin mode. enricher and poster may be nil, which
// disables place names and async screen conversion respectively.
func New(cfg Config, s *sampler.Sampler, e Enricher, poster Poster, logger Logger, opts ...Option) *Controller {
	if cfg.MaxWaypoints <= 0 {
		cfg.MaxWaypoints = DefaultConfig().MaxWaypoints
	}
	if cfg.SoftWaypointLimit <= 0 {
		cfg.SoftWaypointLimit = DefaultConfig().SoftWaypointLimit
	}
	if cfg.ConversionTimeout <= 0 {
		cfg.ConversionTimeout = DefaultConfig().ConversionTimeout
	}

	c := &Controller{
		cfg:       cfg,
		sampler:   s,
		enricher:  e,
		poster:    poster,
		logger:    logger,
		now:       time.Now,
		mode:      core.ModePin,
		waypoints: history.New[core.Waypoint](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// bump invalidates every callback scheduled so far.
func (c *Controller) bump() {
	c.generation++
	if c.enricher != nil {
		c.enricher.Cancel(c.generation)
	}
}

// SetMode switches the interaction mode. Leaving pen mode mid-drawing keeps
// the pending path; it has to be finished or cleared before saving. Entering
// pen mode otherwise starts from an empty capture. Entering pin mode keeps at
// most the last waypoint and entering waypoint mode keeps at most the first
// MaxWaypoints. A recording only counts while record mode stays active.
func (c *Controller) SetMode(mode core.Mode) {
	if mode == c.mode {
		return
	}
	from := c.mode
	c.mode = mode
	c.bump()

	if from == core.ModeRecord {
		c.recordedPath = nil
		c.recordingApplied = false
	}

	switch mode {
	case core.ModePin:
		if c.waypoints.Len() > 1 {
			last, _ := c.waypoints.At(c.waypoints.Len() - 1)
			c.waypoints.Replace(last)
		}
	case core.ModeWaypoint:
		if n := c.waypoints.Len(); n > c.cfg.MaxWaypoints {
			c.waypoints.Replace(c.waypoints.Items()[:c.cfg.MaxWaypoints]...)
			c.logger.Info("waypoints truncated to limit",
				"from", n,
				"limit", c.cfg.MaxWaypoints)
		}
	case core.ModePen:
		c.waypoints.Clear()
		if !c.sampler.Drawing() {
			c.sampler.Reset()
		}
	}

	c.logger.Info("drawing mode changed",
		"from", from.String(),
		"to", mode.String(),
		"generation", c.generation,
		"drawing", c.sampler.Drawing())
}

// HandleMapPress applies a press on the map in the active mode.
func (c *Controller) HandleMapPress(coord core.Coordinate) Notice {
	if !geo.Valid(coord) {
		c.logger.Debug("dropping invalid coordinate", "lat", coord.Latitude, "lng", coord.Longitude)
		return NoticeDropped
	}

	switch c.mode {
	case core.ModePin:
		c.waypoints.Replace(newWaypoint(1, coord))
		c.enrich(0, coord)
		return NoticeAccepted

	case core.ModeWaypoint:
		n := c.waypoints.Len()
		if n >= c.cfg.MaxWaypoints {
			return NoticeLimitReached
		}
		c.waypoints.Push(newWaypoint(n+1, coord))
		c.enrich(n, coord)
		if n+1 >= c.cfg.SoftWaypointLimit {
			return NoticeApproachingLimit
		}
		return NoticeAccepted

	case core.ModePen:
		return c.penTap(coord)

	default:
		return NoticeIgnored
	}
}

// penTap starts a path when idle and continues the current one otherwise.
func (c *Controller) penTap(coord core.Coordinate) Notice {
	starting := !c.sampler.Drawing()
	if starting {
		// a new drawing replaces the finished one
		c.waypoints.Clear()
	}
	if !c.sampler.Tap(coord, c.now()) {
		return NoticeFiltered
	}
	if starting {
		c.logger.Debug("pen drawing started", "generation", c.generation)
	}
	return NoticeAccepted
}

// HandleGesture routes a pen-mode drag sample to the sampler.
func (c *Controller) HandleGesture(ev GestureEvent) Notice {
	if c.mode != core.ModePen {
		return NoticeIgnored
	}

	if ev.Coordinate != nil && !geo.Valid(*ev.Coordinate) {
		c.logger.Debug("dropping invalid gesture coordinate", "phase", ev.Phase.String())
		return NoticeDropped
	}

	switch ev.Phase {
	case GestureBegan:
		if ev.Coordinate == nil {
			if !c.sampler.Drawing() || c.sampler.Len() == 0 {
				// nothing to offset a screen point from
				return NoticeDropped
			}
			pts := c.sampler.Points()
			c.sampler.Anchor(ev.Screen, pts[len(pts)-1].Coordinate())
			return NoticeAccepted
		}
		c.sampler.Anchor(ev.Screen, *ev.Coordinate)
		return c.penTap(*ev.Coordinate)

	case GestureMoved, GestureEnded:
		if !c.sampler.Drawing() {
			return NoticeIgnored
		}
		if ev.Coordinate != nil {
			c.sampler.Anchor(ev.Screen, *ev.Coordinate)
			if !c.sampler.AddPoint(*ev.Coordinate, c.now()) {
				return NoticeFiltered
			}
			return NoticeAccepted
		}
		return c.addScreenPoint(ev.Screen)

	default:
		return NoticeIgnored
	}
}

// addScreenPoint applies the fallback coordinate right away and lets the map
// surface correct it later.
func (c *Controller) addScreenPoint(sp sampler.ScreenPoint) Notice {
	conv, err := c.sampler.ConvertScreenToCoordinate(sp)
	if err != nil {
		c.logger.Debug("cannot convert screen point", "error", err)
		return NoticeDropped
	}
	if !geo.Valid(conv.Fallback) {
		return NoticeDropped
	}
	if !c.sampler.AddPoint(conv.Fallback, c.now()) {
		return NoticeFiltered
	}
	if c.poster != nil && c.sampler.HasSurface() {
		c.resolveAsync(c.generation, c.sampler.Len()-1, conv)
	}
	return NoticeAccepted
}

func (c *Controller) resolveAsync(generation uint64, index int, conv sampler.Conversion) {
	timeout := c.cfg.ConversionTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		precise, err := c.sampler.Resolve(ctx, conv)
		if err != nil {
			return
		}
		if err := c.poster.Post("screen-conversion", func() {
			c.applyConversion(generation, index, conv.Fallback, precise)
		}); err != nil {
			c.logger.Debug("discarding screen conversion", "error", err)
		}
	}()
}

func (c *Controller) applyConversion(generation uint64, index int, fallback, precise core.Coordinate) {
	if generation != c.generation {
		return
	}
	c.sampler.Supersede(index, fallback, precise)
}

// Undo moves the last waypoint to the redo stack. No-op in pen mode.
func (c *Controller) Undo() bool {
	if c.mode == core.ModePen {
		return false
	}
	_, ok := c.waypoints.PopUndo()
	return ok
}

// Redo restores the most recently undone waypoint. No-op in pen mode.
func (c *Controller) Redo() bool {
	if c.mode == core.ModePen {
		return false
	}
	_, ok := c.waypoints.PopRedo()
	return ok
}

// ClearAll empties the capture and invalidates pending callbacks.
func (c *Controller) ClearAll() {
	c.waypoints.Clear()
	c.sampler.Reset()
	c.recordedPath = nil
	c.recordingApplied = false
	c.bump()
	c.logger.Debug("capture cleared", "generation", c.generation)
}

// FinishPenDrawing converts the path into labelled waypoints and ends the
// drawing. The path points are kept for faithful re-display.
func (c *Controller) FinishPenDrawing() error {
	points := c.sampler.Points()
	if len(points) == 0 {
		return ErrNoPathPoints
	}

	waypoints := make([]core.Waypoint, len(points))
	for i, p := range points {
		waypoints[i] = core.Waypoint{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Title:     drawingTitle(i, len(points)),
		}
	}
	c.waypoints.Replace(waypoints...)
	c.sampler.Finish()

	c.logger.Debug("pen drawing finished", "points", len(points))
	return nil
}

func drawingTitle(i, n int) string {
	switch {
	case i == 0:
		return drawingStartTitle
	case i == n-1:
		return drawingEndTitle
	default:
		return fmt.Sprintf("Drawing Point %d", i+1)
	}
}

// ApplyRecording replaces the capture with a finished GPS recording. Invalid
// points are dropped. Waypoints without a title get a synthetic one and a
// place name lookup.
func (c *Controller) ApplyRecording(route core.RecordedRoute) error {
	if c.mode != core.ModeRecord {
		return ErrNotRecordMode
	}

	c.bump()

	waypoints := make([]core.Waypoint, 0, len(route.Waypoints))
	var untitled []int
	for _, w := range route.Waypoints {
		if !geo.Valid(w.Coordinate()) {
			continue
		}
		if w.Title == "" {
			w.Title = enricher.SyntheticTitle(len(waypoints)+1, w.Coordinate())
			untitled = append(untitled, len(waypoints))
		}
		waypoints = append(waypoints, w)
	}

	path := make([]core.PathPoint, 0, len(route.RoutePath))
	for _, p := range route.RoutePath {
		if geo.Valid(p.Coordinate()) {
			path = append(path, p)
		}
	}

	c.waypoints.Replace(waypoints...)
	c.recordedPath = path
	c.recordingApplied = true
	for _, i := range untitled {
		c.enrich(i, waypoints[i].Coordinate())
	}

	c.logger.Info("recording applied",
		"waypoints", len(waypoints),
		"dropped", len(route.Waypoints)-len(waypoints),
		"pathPoints", len(path))
	return nil
}

// ApplyEnrichment patches the title of the waypoint a lookup was scheduled
// for. It is discarded if the capture moved on since. Returns whether the
// title was applied.
func (c *Controller) ApplyEnrichment(r enricher.Result) bool {
	if r.Generation != c.generation {
		return false
	}
	w, ok := c.waypoints.At(r.Index)
	if !ok || w.Coordinate() != r.Coordinate {
		return false
	}
	w.Title = r.Title
	return c.waypoints.Set(r.Index, w)
}

func (c *Controller) enrich(index int, coord core.Coordinate) {
	if c.enricher == nil {
		return
	}
	c.enricher.Enrich(c.generation, index, coord)
}

func newWaypoint(n int, coord core.Coordinate) core.Waypoint {
	return core.Waypoint{
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
		Title:     enricher.SyntheticTitle(n, coord),
	}
}

// Mode returns the active mode.
func (c *Controller) Mode() core.Mode {
	return c.mode
}

// Generation returns the capture generation.
func (c *Controller) Generation() uint64 {
	return c.generation
}

// Waypoints returns a copy of the waypoint list.
func (c *Controller) Waypoints() []core.Waypoint {
	return c.waypoints.Items()
}

// PathPoints returns a copy of the pen path.
func (c *Controller) PathPoints() []core.PathPoint {
	return c.sampler.Points()
}

// DrawingActive reports whether a pen drawing is in progress.
func (c *Controller) DrawingActive() bool {
	return c.sampler.Drawing()
}

// UndoAvailable reports whether Undo would do anything.
func (c *Controller) UndoAvailable() bool {
	return c.mode != core.ModePen && c.waypoints.CanUndo()
}

// RedoAvailable reports whether Redo would do anything.
func (c *Controller) RedoAvailable() bool {
	return c.mode != core.ModePen && c.waypoints.CanRedo()
}

// Snapshot returns a copy of the whole capture state.
func (c *Controller) Snapshot() core.CaptureState {
	return core.CaptureState{
		Mode:          c.mode,
		Waypoints:     c.waypoints.Items(),
		Undone:        c.waypoints.Undone(),
		PathPoints:    c.sampler.Points(),
		DrawingActive: c.sampler.Drawing(),
		Generation:    c.generation,
		RecordedPath:  append([]core.PathPoint(nil), c.recordedPath...),

		RecordingApplied: c.recordingApplied,
	}
}
