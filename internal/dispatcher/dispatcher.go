// Package dispatcher runs every task on a single goroutine. It is the capture
// engine's event thread: UI input and async callbacks both re-enter state
// through it, so state owned by tasks needs no locking.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrClosed is returned when a task is submitted after Close.
	ErrClosed = errors.New("dispatcher closed")
	// ErrQueueFull is returned by Post when the queue is full and the dispatcher is not blocking.
	ErrQueueFull = errors.New("dispatcher queue full")
)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures the dispatcher.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered sets the task queue size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes Post block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging around every task.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type task struct {
	name string
	fn   func()
}

// Dispatcher serializes tasks onto one goroutine.
type Dispatcher struct {
	cfg    config
	logger Logger
	queue  chan task

	// OTEL metrics
	queueSize    metric.Int64ObservableGauge
	processed    metric.Int64Counter
	dropped      metric.Int64Counter
	registration metric.Registration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// New creates a Dispatcher and starts its goroutine.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger, opts ...Option) (*Dispatcher, error) {
	cfg := config{bufferSize: 256}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bufferSize < 1 {
		cfg.bufferSize = 1
	}

	d := &Dispatcher{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan task, cfg.bufferSize),
		done:   make(chan struct{}),
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of tasks waiting for the event goroutine"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	d.registration, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(d.queueSize, int64(len(d.queue)))
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.tasks.processed",
		metric.WithDescription("Total tasks executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.tasks.dropped",
		metric.WithDescription("Total tasks dropped due to full queue or shutdown"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	go d.run()

	return d, nil
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for t := range d.queue {
		d.execute(t)
		d.processed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("task", t.name)))
	}
}

func (d *Dispatcher) execute(t task) {
	start := time.Now()
	if d.cfg.logged {
		d.logger.Debug("handling task", "task", t.name)
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("task panicked", "task", t.name, "panic", fmt.Sprint(r))
			return
		}
		if d.cfg.logged {
			d.logger.Debug("task complete", "task", t.name, "duration", time.Since(start))
		}
	}()

	t.fn()
}

// Post queues fn for execution and returns immediately.
// Safe to call from any goroutine, including from inside a task.
func (d *Dispatcher) Post(name string, fn func()) error {
	return d.enqueue(task{name: name, fn: fn}, d.cfg.blocking)
}

// Call runs fn on the dispatcher goroutine and waits for its result.
// It must not be called from inside a task.
func (d *Dispatcher) Call(name string, fn func() (any, error)) (any, error) {
	type result struct {
		value any
		err   error
	}
	out := make(chan result, 1)

	err := d.enqueue(task{name: name, fn: func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("task %s panicked: %v", name, p)
			}
			out <- r
		}()
		r.value, r.err = fn()
	}}, true)
	if err != nil {
		return nil, err
	}

	r := <-out
	return r.value, r.err
}

// Do is Call for functions without a result.
func (d *Dispatcher) Do(name string, fn func()) error {
	_, err := d.Call(name, func() (any, error) {
		fn()
		return nil, nil
	})
	return err
}

func (d *Dispatcher) enqueue(t task, blocking bool) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	attrs := metric.WithAttributes(attribute.String("task", t.name))

	if d.closed {
		d.dropped.Add(context.Background(), 1, attrs)
		return ErrClosed
	}

	if blocking {
		d.queue <- t
		return nil
	}

	select {
	case d.queue <- t:
		return nil
	default:
		d.dropped.Add(context.Background(), 1, attrs)
		return fmt.Errorf("%w: %s", ErrQueueFull, t.name)
	}
}

// Pending returns the number of queued tasks.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Close stops accepting tasks, runs the ones already queued and waits for the
// goroutine to exit. Calling Close more than once is a no-op.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	if d.registration != nil {
		_ = d.registration.Unregister()
	}
}
