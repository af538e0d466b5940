package capture

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/trailmark/routecapture/internal/enricher"
	"github.com/trailmark/routecapture/pkg/core"
)

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (core.Place, error) {
	args := m.Called(ctx, lat, lng)
	return args.Get(0).(core.Place), args.Error(1)
}

type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualScheduler collects enrichment timers so tests decide when they fire.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) enricher.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{fn: f}
	s.timers = append(s.timers, t)
	return t
}

// fireAll runs every timer, stopped or not, as if each had already started
// when it was cancelled.
func (s *manualScheduler) fireAll() {
	s.mu.Lock()
	timers := append([]*manualTimer(nil), s.timers...)
	s.timers = nil
	s.mu.Unlock()
	for _, t := range timers {
		t.fn()
	}
}
