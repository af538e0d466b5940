// Package enricher resolves captured coordinates to place names in the
// background and hands the titles back to the capture controller.
package enricher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/trailmark/routecapture/internal/cache"
	"github.com/trailmark/routecapture/internal/geocode"
	"github.com/trailmark/routecapture/pkg/core"
)

// Geocoder resolves a coordinate to a place.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (core.Place, error)
}

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run after d on its own goroutine.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Result is a resolved title for the waypoint at Index. The receiver must check
// that Generation is still current and that the waypoint still sits at
// Coordinate before applying it.
type Result struct {
	Generation uint64
	Index      int
	Coordinate core.Coordinate
	Title      string
}

// Config holds scheduling settings.
type Config struct {
	StaggerStep   time.Duration
	MaxDelay      time.Duration
	LookupTimeout time.Duration
}

// DefaultConfig returns 500 ms stagger capped at 5 s, with a 10 s lookup timeout.
func DefaultConfig() Config {
	return Config{
		StaggerStep:   500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		LookupTimeout: 10 * time.Second,
	}
}

// Option configures the enricher.
type Option func(*Enricher)

// WithAfterFunc replaces time.AfterFunc, for deterministic tests.
func WithAfterFunc(af AfterFunc) Option {
	return func(e *Enricher) {
		e.afterFunc = af
	}
}

// WithCache sets the place cache consulted before the geocoder.
func WithCache(c cache.PlaceCache) Option {
	return func(e *Enricher) {
		e.cache = c
	}
}

// Enricher schedules staggered reverse geocode lookups.
type Enricher struct {
	cfg       Config
	geocoder  Geocoder
	cache     cache.PlaceCache
	deliver   func(Result)
	afterFunc AfterFunc
	logger    Logger

	lookups metric.Int64Counter

	mu         sync.Mutex
	generation uint64
	seq        int
	pending    map[int]Timer
	nextID     int
}

// New creates an Enricher. deliver is called from a timer goroutine and is
// expected to hand the result over to the event goroutine.
func New(cfg Config, geocoder Geocoder, deliver func(Result), logger Logger, opts ...Option) (*Enricher, error) {
	if cfg.StaggerStep <= 0 && cfg.MaxDelay <= 0 {
		def := DefaultConfig()
		cfg.StaggerStep, cfg.MaxDelay = def.StaggerStep, def.MaxDelay
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = DefaultConfig().LookupTimeout
	}

	e := &Enricher{
		cfg:       cfg,
		geocoder:  geocoder,
		deliver:   deliver,
		afterFunc: stdAfterFunc,
		logger:    logger,
		pending:   make(map[int]Timer),
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	e.lookups, err = meter().Int64Counter(
		"enricher.lookups",
		metric.WithDescription("Place name lookups by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lookups counter: %w", err)
	}

	return e, nil
}

// Delay returns the stagger for the seq-th lookup (0-based) of a generation.
func (e *Enricher) Delay(seq int) time.Duration {
	d := time.Duration(seq) * e.cfg.StaggerStep
	if d > e.cfg.MaxDelay {
		return e.cfg.MaxDelay
	}
	return d
}

// Enrich schedules a lookup for the waypoint at index. A newer generation
// cancels everything scheduled for older ones; an older one is ignored.
func (e *Enricher) Enrich(generation uint64, index int, coord core.Coordinate) {
	if e.geocoder == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if generation < e.generation {
		e.count("stale")
		return
	}
	if generation > e.generation {
		e.cancelLocked(generation)
	}

	delay := e.Delay(e.seq)
	e.seq++

	id := e.nextID
	e.nextID++
	e.pending[id] = e.afterFunc(delay, func() {
		e.run(id, generation, index, coord)
	})
}

// Cancel stops every pending lookup and starts counting for generation.
func (e *Enricher) Cancel(generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked(generation)
}

func (e *Enricher) cancelLocked(generation uint64) {
	for id, t := range e.pending {
		if t.Stop() {
			e.count("cancelled")
		}
		delete(e.pending, id)
	}
	if generation > e.generation {
		e.generation = generation
	}
	e.seq = 0
}

// Pending returns the number of scheduled lookups not yet started.
func (e *Enricher) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Enricher) run(id int, generation uint64, index int, coord core.Coordinate) {
	e.mu.Lock()
	delete(e.pending, id)
	current := e.generation
	e.mu.Unlock()

	if generation != current {
		e.count("cancelled")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.LookupTimeout)
	defer cancel()

	place, err := e.lookup(ctx, coord)
	if err != nil {
		if errors.Is(err, geocode.ErrRateLimited) {
			e.count("rate_limited")
			e.logger.Warn("place lookup rate limited", "index", index)
		} else {
			e.count("failed")
			e.logger.Debug("place lookup failed", "index", index, "error", err)
		}
		return
	}

	title := Title(place)
	if title == "" {
		e.count("empty")
		e.logger.Debug("place lookup returned nothing", "index", index)
		return
	}

	e.deliver(Result{
		Generation: generation,
		Index:      index,
		Coordinate: coord,
		Title:      title,
	})
}

func (e *Enricher) lookup(ctx context.Context, coord core.Coordinate) (core.Place, error) {
	if e.cache != nil {
		place, ok, err := e.cache.Get(ctx, coord)
		if err != nil {
			e.logger.Debug("place cache read failed", "error", err)
		} else if ok {
			e.count("cached")
			return place, nil
		}
	}

	place, err := e.geocoder.ReverseGeocode(ctx, coord.Latitude, coord.Longitude)
	if err != nil {
		return core.Place{}, err
	}
	e.count("resolved")

	if e.cache != nil && !place.Empty() {
		if err := e.cache.Set(ctx, coord, place); err != nil {
			e.logger.Debug("place cache write failed", "error", err)
		}
	}
	return place, nil
}

func (e *Enricher) count(outcome string) {
	e.lookups.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
