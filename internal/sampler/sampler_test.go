package sampler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trailmark/routecapture/pkg/core"
)

type mockSurface struct {
	mock.Mock
}

func (m *mockSurface) ScreenPointToCoordinate(ctx context.Context, x, y float64) (core.Coordinate, error) {
	args := m.Called(ctx, x, y)
	return args.Get(0).(core.Coordinate), args.Error(1)
}

var (
	t0     = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	origin = core.Coordinate{Latitude: 55.7, Longitude: 13.19}
	// about 11 m north of origin
	north = core.Coordinate{Latitude: 55.7001, Longitude: 13.19}
	// about 1 m north of origin
	nearby = core.Coordinate{Latitude: 55.70001, Longitude: 13.19}
)

func newSampler() *Sampler {
	return New(DefaultConfig(), nil, nil)
}

func TestStart(t *testing.T) {
	s := newSampler()
	assert.False(t, s.Drawing())

	s.Start(origin, t0)

	assert.True(t, s.Drawing())
	require.Equal(t, 1, s.Len())
	assert.Equal(t, origin, s.Points()[0].Coordinate())
	assert.Equal(t, t0.UnixMilli(), s.Points()[0].Timestamp)
}

func TestAddPoint_DuplicateWithinIntervalIsDropped(t *testing.T) {
	s := newSampler()
	s.Start(origin, t0)

	assert.False(t, s.AddPoint(origin, t0.Add(10*time.Millisecond)))
	assert.False(t, s.AddPoint(origin, t0.Add(20*time.Millisecond)))

	assert.Equal(t, 1, s.Len())
}

func TestAddPoint_Filters(t *testing.T) {
	tests := []struct {
		name    string
		coord   core.Coordinate
		elapsed time.Duration
		want    bool
	}{
		{"far and late", north, 60 * time.Millisecond, true},
		{"far but too soon", north, 10 * time.Millisecond, false},
		{"late but too close", nearby, time.Second, false},
		{"exactly at interval", north, 50 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSampler()
			s.Start(origin, t0)

			got := s.AddPoint(tt.coord, t0.Add(tt.elapsed))

			assert.Equal(t, tt.want, got)
			if tt.want {
				assert.Equal(t, 2, s.Len())
			} else {
				assert.Equal(t, 1, s.Len())
			}
		})
	}
}

func TestAddPoint_IdleIsIgnored(t *testing.T) {
	s := newSampler()
	assert.False(t, s.AddPoint(origin, t0))
	assert.Equal(t, 0, s.Len())
}

func TestAddPoint_MeasuresFromLastRetained(t *testing.T) {
	s := newSampler()
	s.Start(origin, t0)

	require.True(t, s.AddPoint(north, t0.Add(100*time.Millisecond)))
	// rejected point does not move the time anchor
	assert.False(t, s.AddPoint(origin, t0.Add(120*time.Millisecond)))
	assert.True(t, s.AddPoint(origin, t0.Add(150*time.Millisecond)))
	assert.Equal(t, 3, s.Len())
}

func TestTap(t *testing.T) {
	s := newSampler()

	assert.True(t, s.Tap(origin, t0), "tap while idle starts a path")
	assert.True(t, s.Drawing())

	// distance filter only: no time filter for deliberate taps
	assert.True(t, s.Tap(north, t0))
	assert.False(t, s.Tap(north, t0.Add(time.Second)), "tap on the same spot is dropped")
	assert.Equal(t, 2, s.Len())
}

func TestTap_AfterFinishStartsNewPath(t *testing.T) {
	s := newSampler()
	s.Start(origin, t0)
	s.AddPoint(north, t0.Add(time.Second))
	s.Finish()

	assert.False(t, s.Drawing())
	assert.Equal(t, 2, s.Len(), "finish keeps points")

	s.Tap(nearby, t0.Add(2*time.Second))
	assert.True(t, s.Drawing())
	assert.Equal(t, 1, s.Len())
}

func TestReset(t *testing.T) {
	s := newSampler()
	s.Start(origin, t0)
	s.Reset()

	assert.False(t, s.Drawing())
	assert.Equal(t, 0, s.Len())
}

func TestPoints_IsACopy(t *testing.T) {
	s := newSampler()
	s.Start(origin, t0)

	pts := s.Points()
	pts[0].Latitude = 0

	assert.Equal(t, origin.Latitude, s.Points()[0].Latitude)
}

func TestConvertScreenToCoordinate_NoAnchor(t *testing.T) {
	s := newSampler()
	_, err := s.ConvertScreenToCoordinate(ScreenPoint{X: 10, Y: 10})
	assert.ErrorIs(t, err, ErrNoAnchor)
}

func TestConvertScreenToCoordinate_Fallback(t *testing.T) {
	s := newSampler()
	s.Anchor(ScreenPoint{X: 100, Y: 100}, origin)

	conv, err := s.ConvertScreenToCoordinate(ScreenPoint{X: 110, Y: 80})
	require.NoError(t, err)

	// x grows east, y grows south
	assert.InDelta(t, 55.7+20*1e-5, conv.Fallback.Latitude, 1e-9)
	assert.InDelta(t, 13.19+10*1e-5, conv.Fallback.Longitude, 1e-9)

	// anchor moved with the conversion
	conv2, err := s.ConvertScreenToCoordinate(ScreenPoint{X: 110, Y: 80})
	require.NoError(t, err)
	assert.Equal(t, conv.Fallback, conv2.Fallback)
}

func TestResolve_UsesSurface(t *testing.T) {
	surface := &mockSurface{}
	precise := core.Coordinate{Latitude: 55.71, Longitude: 13.2}
	surface.On("ScreenPointToCoordinate", mock.Anything, 5.0, 6.0).Return(precise, nil)

	s := New(DefaultConfig(), surface, nil)
	got, err := s.Resolve(context.Background(), Conversion{Screen: ScreenPoint{X: 5, Y: 6}, Fallback: origin})

	require.NoError(t, err)
	assert.Equal(t, precise, got)
	surface.AssertExpectations(t)
}

func TestResolve_FailureKeepsFallback(t *testing.T) {
	surface := &mockSurface{}
	surface.On("ScreenPointToCoordinate", mock.Anything, mock.Anything, mock.Anything).
		Return(core.Coordinate{}, errors.New("map not ready"))

	s := New(DefaultConfig(), surface, nil)
	got, err := s.Resolve(context.Background(), Conversion{Fallback: origin})

	require.Error(t, err)
	assert.Equal(t, origin, got)
}

func TestResolve_NoSurface(t *testing.T) {
	s := newSampler()
	assert.False(t, s.HasSurface())

	got, err := s.Resolve(context.Background(), Conversion{Fallback: origin})
	require.Error(t, err)
	assert.Equal(t, origin, got)
}

func TestSupersede(t *testing.T) {
	s := newSampler()
	s.Anchor(ScreenPoint{}, origin)
	s.Start(origin, t0)
	conv, _ := s.ConvertScreenToCoordinate(ScreenPoint{X: 0, Y: -1000})
	require.True(t, s.AddPoint(conv.Fallback, t0.Add(time.Second)))

	precise := core.Coordinate{Latitude: 55.7105, Longitude: 13.1901}
	assert.True(t, s.Supersede(1, conv.Fallback, precise))
	assert.Equal(t, precise, s.Points()[1].Coordinate())

	// second result for the same point no longer matches
	assert.False(t, s.Supersede(1, conv.Fallback, origin))
	assert.False(t, s.Supersede(5, conv.Fallback, precise))

	// anchor followed the correction
	next, _ := s.ConvertScreenToCoordinate(ScreenPoint{X: 0, Y: -1000})
	assert.Equal(t, precise, next.Fallback)
}
