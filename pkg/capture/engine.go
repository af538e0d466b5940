// Package capture is the route capture engine: it takes map input in one of
// four authoring modes, keeps the route state on a single event goroutine and
// saves it as a normalized geometry record.
//
// All Engine methods are safe for concurrent use. Each one runs its work on
// the event goroutine and waits for the result.
package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trailmark/routecapture/internal/cache"
	ctl "github.com/trailmark/routecapture/internal/capture"
	"github.com/trailmark/routecapture/internal/config"
	"github.com/trailmark/routecapture/internal/dispatcher"
	"github.com/trailmark/routecapture/internal/enricher"
	"github.com/trailmark/routecapture/internal/logging"
	"github.com/trailmark/routecapture/internal/sampler"
	"github.com/trailmark/routecapture/internal/serializer"
	"github.com/trailmark/routecapture/pkg/core"
)

// ErrNoStorage is returned by Save when the engine has no storage backend.
var ErrNoStorage = errors.New("no storage backend configured")

// Storage persists serialized routes.
type Storage interface {
	SaveRoute(ctx context.Context, rec core.GeometryRecord, form core.RouteForm) (string, error)
}

// Telemetry is told about every saved route.
type Telemetry interface {
	RouteSaved(ctx context.Context, id string, rec core.GeometryRecord) error
}

// Config groups the settings of the engine's parts.
type Config struct {
	Sampler    sampler.Config
	Enricher   enricher.Config
	Controller ctl.Config
	QueueSize  int
	// BlockingCallbacks makes async callbacks wait on a full queue.
	BlockingCallbacks bool
}

// DefaultConfig returns the defaults of every part.
func DefaultConfig() Config {
	return Config{
		Sampler:    sampler.DefaultConfig(),
		Enricher:   enricher.DefaultConfig(),
		Controller: ctl.DefaultConfig(),
		QueueSize:  1024,
	}
}

// ConfigFrom maps the file configuration onto an engine Config.
func ConfigFrom(c config.CaptureConfig) Config {
	cfg := DefaultConfig()
	cfg.Sampler.MinDistanceMeters = c.MinDistanceMeters
	cfg.Sampler.MinInterval = c.MinInterval
	if c.FallbackScale > 0 {
		cfg.Sampler.FallbackScale = c.FallbackScale
	}
	cfg.Enricher.StaggerStep = c.StaggerStep
	cfg.Enricher.MaxDelay = c.MaxStaggerDelay
	if c.LookupTimeout > 0 {
		cfg.Enricher.LookupTimeout = c.LookupTimeout
	}
	if c.SoftWaypointLimit > 0 {
		cfg.Controller.SoftWaypointLimit = c.SoftWaypointLimit
	}
	if c.MaxWaypoints > 0 {
		cfg.Controller.MaxWaypoints = c.MaxWaypoints
	}
	cfg.BlockingCallbacks = c.BlockingCallbacks
	return cfg
}

type options struct {
	surface   sampler.MapSurface
	geocoder  enricher.Geocoder
	cache     cache.PlaceCache
	storage   Storage
	telemetry Telemetry
	clock     func() time.Time
	afterFunc enricher.AfterFunc
	logger    zerolog.Logger
}

// Option configures an Engine.
type Option func(*options)

// WithMapSurface sets the map used to convert screen points.
func WithMapSurface(s MapSurface) Option {
	return func(o *options) { o.surface = s }
}

// WithGeocoder enables place name enrichment.
func WithGeocoder(g enricher.Geocoder) Option {
	return func(o *options) { o.geocoder = g }
}

// WithPlaceCache sets the cache consulted before the geocoder.
func WithPlaceCache(c cache.PlaceCache) Option {
	return func(o *options) { o.cache = c }
}

// WithStorage sets the backend used by Save.
func WithStorage(s Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithTelemetry sets the sink notified after each save.
func WithTelemetry(t Telemetry) Option {
	return func(o *options) { o.telemetry = t }
}

// WithClock replaces time.Now for sampling.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithAfterFunc replaces time.AfterFunc for enrichment scheduling.
func WithAfterFunc(af enricher.AfterFunc) Option {
	return func(o *options) { o.afterFunc = af }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Engine is the exposed capture surface.
type Engine struct {
	cfg       Config
	sessionID string
	log       zerolog.Logger

	d         *dispatcher.Dispatcher
	ctrl      *ctl.Controller
	enr       *enricher.Enricher
	storage   Storage
	telemetry Telemetry

	// owned by the event goroutine
	recording core.RecordedRoute
}

// New builds an Engine and starts its event goroutine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	o := options{
		clock:  time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}

	e := &Engine{
		cfg:       cfg,
		sessionID: uuid.NewString(),
		storage:   o.storage,
		telemetry: o.telemetry,
	}
	e.log = o.logger.With().Str("session", e.sessionID).Logger()
	kv := logging.NewKVLogger(e.log)

	dopts := []dispatcher.Option{dispatcher.Buffered(cfg.QueueSize)}
	if cfg.BlockingCallbacks {
		dopts = append(dopts, dispatcher.Blocking())
	}
	if e.log.GetLevel() <= zerolog.DebugLevel && zerolog.GlobalLevel() <= zerolog.DebugLevel {
		dopts = append(dopts, dispatcher.Logged())
	}
	d, err := dispatcher.New(kv, dopts...)
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	e.d = d

	enrOpts := []enricher.Option{}
	if o.cache != nil {
		enrOpts = append(enrOpts, enricher.WithCache(o.cache))
	}
	if o.afterFunc != nil {
		enrOpts = append(enrOpts, enricher.WithAfterFunc(o.afterFunc))
	}
	e.enr, err = enricher.New(cfg.Enricher, o.geocoder, e.deliver, kv, enrOpts...)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("creating enricher: %w", err)
	}

	s := sampler.New(cfg.Sampler, o.surface, kv)
	e.ctrl = ctl.New(cfg.Controller, s, e.enr, d, kv, ctl.WithClock(o.clock))

	e.log.Debug().
		Bool("geocoder", o.geocoder != nil).
		Bool("surface", o.surface != nil).
		Bool("storage", o.storage != nil).
		Msg("Capture engine started")
	return e, nil
}

// deliver runs on an enricher timer goroutine.
func (e *Engine) deliver(r enricher.Result) {
	err := e.d.Post("enrichment", func() {
		if !e.ctrl.ApplyEnrichment(r) {
			e.log.Debug().Int("index", r.Index).Uint64("generation", r.Generation).Msg("Discarding stale place name")
		}
	})
	if err != nil {
		e.log.Debug().Err(err).Msg("Dropping place name")
	}
}

func call[T any](e *Engine, name string, fn func() T) (T, error) {
	v, err := e.d.Call(name, func() (any, error) {
		return fn(), nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func observe[T any](e *Engine, name string, fn func() T) T {
	v, err := call(e, name, fn)
	if err != nil {
		e.log.Debug().Err(err).Str("observer", name).Msg("Engine unavailable")
	}
	return v
}

// SessionID identifies this engine instance in logs.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// SetMode switches the authoring mode. The name and description of an
// applied recording are dropped with it.
func (e *Engine) SetMode(mode core.Mode) error {
	return e.d.Do("set-mode", func() {
		if mode != e.ctrl.Mode() {
			e.recording = core.RecordedRoute{}
		}
		e.ctrl.SetMode(mode)
	})
}

// HandleMapPress applies a tap on the map.
func (e *Engine) HandleMapPress(coord core.Coordinate) (Notice, error) {
	return call(e, "map-press", func() Notice {
		return e.ctrl.HandleMapPress(coord)
	})
}

// HandleGesture applies one pen-mode drag sample.
func (e *Engine) HandleGesture(ev GestureEvent) (Notice, error) {
	return call(e, "gesture", func() Notice {
		return e.ctrl.HandleGesture(ev)
	})
}

// Undo removes the last waypoint. Reports whether anything changed.
func (e *Engine) Undo() (bool, error) {
	return call(e, "undo", e.ctrl.Undo)
}

// Redo restores the last undone waypoint. Reports whether anything changed.
func (e *Engine) Redo() (bool, error) {
	return call(e, "redo", e.ctrl.Redo)
}

// ClearAll empties the capture and cancels pending lookups.
func (e *Engine) ClearAll() error {
	return e.d.Do("clear-all", func() {
		e.ctrl.ClearAll()
		e.recording = core.RecordedRoute{}
	})
}

// FinishPenDrawing converts the drawn path into waypoints.
func (e *Engine) FinishPenDrawing() error {
	_, err := e.d.Call("finish-pen", func() (any, error) {
		return nil, e.ctrl.FinishPenDrawing()
	})
	return err
}

// ApplyRecording loads a finished GPS recording. The engine must be in record mode.
func (e *Engine) ApplyRecording(route core.RecordedRoute) error {
	_, err := e.d.Call("apply-recording", func() (any, error) {
		if err := e.ctrl.ApplyRecording(route); err != nil {
			return nil, err
		}
		e.recording = core.RecordedRoute{Name: route.Name, Description: route.Description}
		return nil, nil
	})
	return err
}

// Serialize validates the capture and builds its geometry record. Validation
// failures are *ValidationError.
func (e *Engine) Serialize(opts map[string]any) (core.GeometryRecord, error) {
	rec, _, err := e.serialize(opts)
	return rec, err
}

func (e *Engine) serialize(opts map[string]any) (core.GeometryRecord, core.RecordedRoute, error) {
	type out struct {
		rec       core.GeometryRecord
		recording core.RecordedRoute
	}
	v, err := e.d.Call("serialize", func() (any, error) {
		rec, err := serializer.Serialize(e.ctrl.Snapshot(), serializer.Options{
			Options:      opts,
			MaxWaypoints: e.cfg.Controller.MaxWaypoints,
		})
		if err != nil {
			return nil, err
		}
		return out{rec: rec, recording: e.recording}, nil
	})
	if err != nil {
		return core.GeometryRecord{}, core.RecordedRoute{}, err
	}
	o := v.(out)
	return o.rec, o.recording, nil
}

// Save serializes the capture and persists it with the form fields. An empty
// form name or description is taken from the applied recording, if any.
// Storage runs on the caller's goroutine.
func (e *Engine) Save(ctx context.Context, form core.RouteForm) (string, error) {
	if e.storage == nil {
		return "", ErrNoStorage
	}

	rec, recording, err := e.serialize(form.Options)
	if err != nil {
		return "", err
	}
	if form.Name == "" {
		form.Name = recording.Name
	}
	if form.Description == "" {
		form.Description = recording.Description
	}

	id, err := e.storage.SaveRoute(ctx, rec, form)
	if err != nil {
		return "", fmt.Errorf("saving route: %w", err)
	}

	if e.telemetry != nil {
		if err := e.telemetry.RouteSaved(ctx, id, rec); err != nil {
			e.log.Warn().Err(err).Str("id", id).Msg("Failed to record route telemetry")
		}
	}

	e.log.Info().
		Str("id", id).
		Str("mode", rec.DrawingMode).
		Str("uiMode", rec.Metadata.ActualDrawingMode).
		Int("points", len(rec.WaypointDetails)).
		Float64("lengthMeters", rec.Metadata.LengthMeters).
		Msg("Route saved")
	return id, nil
}

// Mode returns the active mode.
func (e *Engine) Mode() core.Mode {
	return observe(e, "mode", e.ctrl.Mode)
}

// Waypoints returns a copy of the waypoint list.
func (e *Engine) Waypoints() []core.Waypoint {
	return observe(e, "waypoints", e.ctrl.Waypoints)
}

// PathPoints returns a copy of the pen path.
func (e *Engine) PathPoints() []core.PathPoint {
	return observe(e, "path-points", e.ctrl.PathPoints)
}

// DrawingActive reports whether a pen drawing is in progress.
func (e *Engine) DrawingActive() bool {
	return observe(e, "drawing-active", e.ctrl.DrawingActive)
}

// UndoAvailable reports whether Undo would change anything.
func (e *Engine) UndoAvailable() bool {
	return observe(e, "undo-available", e.ctrl.UndoAvailable)
}

// RedoAvailable reports whether Redo would change anything.
func (e *Engine) RedoAvailable() bool {
	return observe(e, "redo-available", e.ctrl.RedoAvailable)
}

// Snapshot returns a copy of the whole capture state.
func (e *Engine) Snapshot() core.CaptureState {
	return observe(e, "snapshot", e.ctrl.Snapshot)
}

// Close runs the queued work, stops the event goroutine and drops pending
// lookups. Later calls return ErrClosed.
func (e *Engine) Close() {
	queued := e.d.Pending()
	e.d.Close()
	lookups := e.enr.Pending()
	e.enr.Cancel(math.MaxUint64)
	e.log.Debug().Int("queued", queued).Int("droppedLookups", lookups).Msg("Capture engine closed")
}
