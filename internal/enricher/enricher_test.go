package enricher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trailmark/routecapture/internal/cache"
	"github.com/trailmark/routecapture/internal/geocode"
	"github.com/trailmark/routecapture/internal/logging"
	"github.com/trailmark/routecapture/pkg/core"
)

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (core.Place, error) {
	args := m.Called(ctx, lat, lng)
	return args.Get(0).(core.Place), args.Error(1)
}

// manualTimer is fired explicitly by the test.
type manualTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.timers))
	for i, t := range s.timers {
		out[i] = t.delay
	}
	return out
}

// fire runs every timer that was not stopped.
func (s *manualScheduler) fire() {
	s.mu.Lock()
	timers := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range timers {
		if !t.stopped && !t.fired {
			t.fired = true
			t.fn()
		}
	}
}

// fireEvenStopped runs every timer, modelling a timer that had already started
// when Stop was called.
func (s *manualScheduler) fireEvenStopped() {
	s.mu.Lock()
	timers := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range timers {
		if !t.fired {
			t.fired = true
			t.fn()
		}
	}
}

type collector struct {
	mu      sync.Mutex
	results []Result
}

func (c *collector) deliver(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) all() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

func newTestEnricher(t *testing.T, g Geocoder, opts ...Option) (*Enricher, *manualScheduler, *collector) {
	t.Helper()
	sched := &manualScheduler{}
	col := &collector{}
	opts = append([]Option{WithAfterFunc(sched.AfterFunc)}, opts...)
	e, err := New(DefaultConfig(), g, col.deliver, logging.Nop(), opts...)
	require.NoError(t, err)
	return e, sched, col
}

var lund = core.Coordinate{Latitude: 55.7, Longitude: 13.19}

func TestDelay(t *testing.T) {
	e, _, _ := newTestEnricher(t, &mockGeocoder{})

	assert.Equal(t, time.Duration(0), e.Delay(0))
	assert.Equal(t, 500*time.Millisecond, e.Delay(1))
	assert.Equal(t, 4500*time.Millisecond, e.Delay(9))
	assert.Equal(t, 5*time.Second, e.Delay(10))
	assert.Equal(t, 5*time.Second, e.Delay(100))
}

func TestEnrich_StaggersWithinGeneration(t *testing.T) {
	g := &mockGeocoder{}
	e, sched, _ := newTestEnricher(t, g)

	e.Enrich(1, 0, lund)
	e.Enrich(1, 1, lund)
	e.Enrich(1, 2, lund)

	assert.Equal(t, []time.Duration{0, 500 * time.Millisecond, time.Second}, sched.delays())
	assert.Equal(t, 3, e.Pending())
}

func TestEnrich_NewGenerationResetsSequence(t *testing.T) {
	g := &mockGeocoder{}
	e, sched, _ := newTestEnricher(t, g)

	e.Enrich(1, 0, lund)
	e.Enrich(1, 1, lund)
	e.Enrich(2, 0, lund)

	assert.Equal(t, time.Duration(0), sched.delays()[2])
	assert.Equal(t, 1, e.Pending(), "older generation timers are stopped")
}

func TestEnrich_DeliversTitle(t *testing.T) {
	g := &mockGeocoder{}
	g.On("ReverseGeocode", mock.Anything, 55.7, 13.19).
		Return(core.Place{Street: "Stortorget", City: "Lund", Country: "Sweden"}, nil)

	e, sched, col := newTestEnricher(t, g)
	e.Enrich(1, 0, lund)
	sched.fire()

	results := col.all()
	require.Len(t, results, 1)
	assert.Equal(t, Result{Generation: 1, Index: 0, Coordinate: lund, Title: "Stortorget, Lund"}, results[0])
	assert.Equal(t, 0, e.Pending())
	g.AssertExpectations(t)
}

func TestEnrich_FailureIsSwallowed(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"network", errors.New("connection refused")},
		{"rate limited", geocode.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &mockGeocoder{}
			g.On("ReverseGeocode", mock.Anything, mock.Anything, mock.Anything).Return(core.Place{}, tt.err)

			e, sched, col := newTestEnricher(t, g)
			e.Enrich(1, 0, lund)
			sched.fire()

			assert.Empty(t, col.all())
		})
	}
}

func TestEnrich_EmptyPlaceKeepsSyntheticTitle(t *testing.T) {
	g := &mockGeocoder{}
	g.On("ReverseGeocode", mock.Anything, mock.Anything, mock.Anything).Return(core.Place{}, nil)

	e, sched, col := newTestEnricher(t, g)
	e.Enrich(1, 0, lund)
	sched.fire()

	assert.Empty(t, col.all())
}

func TestCancel_StopsPendingLookups(t *testing.T) {
	g := &mockGeocoder{}
	e, sched, col := newTestEnricher(t, g)

	e.Enrich(1, 0, lund)
	e.Cancel(2)
	sched.fire()

	assert.Empty(t, col.all())
	assert.Equal(t, 0, e.Pending())
	g.AssertNotCalled(t, "ReverseGeocode", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_TimerAlreadyRunningIsDiscarded(t *testing.T) {
	g := &mockGeocoder{}
	e, sched, col := newTestEnricher(t, g)

	e.Enrich(1, 0, lund)
	e.Cancel(2)
	sched.fireEvenStopped()

	assert.Empty(t, col.all())
	g.AssertNotCalled(t, "ReverseGeocode", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnrich_StaleGenerationIgnored(t *testing.T) {
	g := &mockGeocoder{}
	e, sched, _ := newTestEnricher(t, g)

	e.Cancel(5)
	e.Enrich(3, 0, lund)

	assert.Empty(t, sched.delays())
}

func TestEnrich_UsesCache(t *testing.T) {
	g := &mockGeocoder{}
	g.On("ReverseGeocode", mock.Anything, mock.Anything, mock.Anything).
		Return(core.Place{City: "Lund", Country: "Sweden"}, nil).Once()

	pc := cache.NewMemoryPlaceCache()
	e, sched, col := newTestEnricher(t, g, WithCache(pc))

	e.Enrich(1, 0, lund)
	sched.fire()
	e.Enrich(1, 1, core.Coordinate{Latitude: 55.700001, Longitude: 13.190001})
	sched.fire()

	results := col.all()
	require.Len(t, results, 2)
	assert.Equal(t, "Lund, Sweden", results[1].Title)
	assert.Equal(t, 1, pc.Len())
	g.AssertNumberOfCalls(t, "ReverseGeocode", 1)
}

func TestEnrich_NilGeocoder(t *testing.T) {
	e, sched, _ := newTestEnricher(t, nil)
	e.Enrich(1, 0, lund)
	assert.Empty(t, sched.delays())
}

func TestEnrich_RealTimer(t *testing.T) {
	g := &mockGeocoder{}
	g.On("ReverseGeocode", mock.Anything, mock.Anything, mock.Anything).
		Return(core.Place{Country: "Sweden"}, nil)

	done := make(chan Result, 1)
	e, err := New(Config{StaggerStep: time.Millisecond, MaxDelay: 5 * time.Millisecond}, g,
		func(r Result) { done <- r }, logging.Nop())
	require.NoError(t, err)

	e.Enrich(1, 0, lund)

	select {
	case r := <-done:
		assert.Equal(t, "Sweden", r.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for enrichment")
	}
}
