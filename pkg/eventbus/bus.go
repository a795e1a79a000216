package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrBusClosed    = errors.New("event bus closed")
	ErrQueueFull    = errors.New("event bus queue full")
	ErrHandlerPanic = errors.New("event handler panicked")
)

type Handler func(ctx context.Context, ev Event) error

type OverflowPolicy string

const (
	// CallerRuns executes the handler on the publishing goroutine.
	CallerRuns OverflowPolicy = "caller-runs"
	// Reject drops the handler invocation and reports ErrQueueFull.
	Reject OverflowPolicy = "reject"
)

type Config struct {
	MinWorkers    int
	MaxWorkers    int
	QueueCapacity int
	IdleTimeout   time.Duration
	Overflow      OverflowPolicy
}

func DefaultConfig() Config {
	return Config{
		MinWorkers:    4,
		MaxWorkers:    16,
		QueueCapacity: 256,
		IdleTimeout:   30 * time.Second,
		Overflow:      CallerRuns,
	}
}

func (c Config) normalized() Config {
	if c.MinWorkers < 1 {
		c.MinWorkers = 1
	}
	if c.MaxWorkers < c.MinWorkers {
		c.MaxWorkers = c.MinWorkers
	}
	if c.QueueCapacity < 0 {
		c.QueueCapacity = 0
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
	if c.Overflow != Reject {
		c.Overflow = CallerRuns
	}
	return c
}

// Metrics receives bus activity. pkg/metrics provides a Prometheus implementation.
type Metrics interface {
	EventPublished(eventType string)
	HandlerRejected(eventType, handler string)
	HandlerFinished(eventType, handler string, err error, elapsed time.Duration)
	QueueDepth(n int)
}

type nopMetrics struct{}

func (nopMetrics) EventPublished(string)                                {}
func (nopMetrics) HandlerRejected(string, string)                       {}
func (nopMetrics) HandlerFinished(string, string, error, time.Duration) {}
func (nopMetrics) QueueDepth(int)                                       {}

type Option func(*Bus)

func WithMetrics(m Metrics) Option {
	return func(b *Bus) {
		if m != nil {
			b.metrics = m
		}
	}
}

type Stats struct {
	Workers   int
	Queued    int
	Pending   int
	Published uint64
	Rejected  uint64
	Failed    uint64
}

type subscription struct {
	name   string
	handle Handler
}

type task struct {
	ctx context.Context
	ev  Event
	sub subscription
}

// Bus is an in-process publish/subscribe registry backed by a bounded worker
// pool. The registry is built with Subscribe before events flow.
type Bus struct {
	log     *slog.Logger
	cfg     Config
	metrics Metrics
	tracer  trace.Tracer

	mu       sync.RWMutex
	handlers map[string][]subscription
	all      []subscription
	closed   bool

	tasks   chan task
	workers atomic.Int32
	wg      sync.WaitGroup

	pendingMu sync.Mutex
	pending   int
	idle      chan struct{}

	published atomic.Uint64
	rejected  atomic.Uint64
	failed    atomic.Uint64
}

func New(log *slog.Logger, cfg Config, opts ...Option) *Bus {
	cfg = cfg.normalized()
	b := &Bus{
		log:      log.With("component", "eventbus"),
		cfg:      cfg,
		metrics:  nopMetrics{},
		tracer:   otel.Tracer("eventbus"),
		handlers: make(map[string][]subscription),
		tasks:    make(chan task, cfg.QueueCapacity),
		idle:     make(chan struct{}),
	}
	close(b.idle)
	for _, opt := range opts {
		opt(b)
	}
	for i := 0; i < cfg.MinWorkers; i++ {
		b.spawn(nil, true)
	}
	return b
}

// Subscribe registers h for one event type. Handlers of the same type are
// enqueued in registration order.
func (b *Bus) Subscribe(eventType, name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], subscription{name: name, handle: h})
}

// SubscribeAll registers h for every event type.
func (b *Bus) SubscribeAll(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, subscription{name: name, handle: h})
}

// Publish hands ev to every interested handler and returns without waiting
// for them. Handlers get a context that keeps ctx values but not its
// cancellation.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}

	eventType := ev.EventType()
	subs := make([]subscription, 0, len(b.handlers[eventType])+len(b.all))
	subs = append(subs, b.handlers[eventType]...)
	subs = append(subs, b.all...)

	b.published.Add(1)
	b.metrics.EventPublished(eventType)

	hctx := context.WithoutCancel(ctx)
	var inline []task
	var dropped []string
	for _, sub := range subs {
		t := task{ctx: hctx, ev: ev, sub: sub}
		b.track()
		if b.submit(t) {
			continue
		}
		if b.cfg.Overflow == Reject {
			b.untrack()
			b.rejected.Add(1)
			b.metrics.HandlerRejected(eventType, sub.name)
			dropped = append(dropped, sub.name)
			continue
		}
		inline = append(inline, t)
	}
	b.mu.RUnlock()

	for _, t := range inline {
		b.run(t)
	}

	if len(dropped) > 0 {
		meta := ev.Meta()
		b.log.Warn("event handlers rejected", "event_type", eventType, "event_id", meta.EventID, "order_id", meta.OrderID, "handlers", dropped)
		return fmt.Errorf("%w: %d handler(s) of %s dropped", ErrQueueFull, len(dropped), eventType)
	}
	return nil
}

// Wait blocks until no handler is queued or running.
func (b *Bus) Wait(ctx context.Context) error {
	b.pendingMu.Lock()
	idle := b.idle
	b.pendingMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close lets in-flight pipelines settle (bounded by ctx), refuses further
// publishes and stops the workers.
func (b *Bus) Close(ctx context.Context) error {
	waitErr := b.Wait(ctx)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.tasks)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("event bus close: %w", ctx.Err())
	}
	if waitErr != nil {
		b.log.Warn("event bus closed before pipelines settled", "err", waitErr)
	}
	b.log.Info("event bus closed", "published", b.published.Load(), "failed", b.failed.Load())
	return nil
}

// Accepting reports whether Publish still takes events.
func (b *Bus) Accepting() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.closed
}

func (b *Bus) Stats() Stats {
	b.pendingMu.Lock()
	pending := b.pending
	b.pendingMu.Unlock()
	return Stats{
		Workers:   int(b.workers.Load()),
		Queued:    len(b.tasks),
		Pending:   pending,
		Published: b.published.Load(),
		Rejected:  b.rejected.Load(),
		Failed:    b.failed.Load(),
	}
}

// submit must be called with b.mu read-locked so tasks is still open.
func (b *Bus) submit(t task) bool {
	select {
	case b.tasks <- t:
		b.metrics.QueueDepth(len(b.tasks))
		return true
	default:
	}
	return b.spawn(&t, false)
}

func (b *Bus) spawn(first *task, core bool) bool {
	for {
		n := b.workers.Load()
		if int(n) >= b.cfg.MaxWorkers {
			return false
		}
		if b.workers.CompareAndSwap(n, n+1) {
			break
		}
	}
	b.wg.Add(1)
	go b.work(first, core)
	return true
}

func (b *Bus) work(first *task, core bool) {
	defer b.wg.Done()
	defer b.workers.Add(-1)

	if first != nil {
		b.run(*first)
	}
	if core {
		for t := range b.tasks {
			b.run(t)
		}
		return
	}

	idle := time.NewTimer(b.cfg.IdleTimeout)
	defer idle.Stop()
	for {
		select {
		case t, ok := <-b.tasks:
			if !ok {
				return
			}
			b.run(t)
			idle.Reset(b.cfg.IdleTimeout)
		case <-idle.C:
			return
		}
	}
}

func (b *Bus) run(t task) {
	defer b.untrack()

	eventType := t.ev.EventType()
	meta := t.ev.Meta()
	start := time.Now()

	ctx, span := b.tracer.Start(t.ctx, "eventbus.dispatch "+eventType, trace.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.String("event.id", meta.EventID),
		attribute.String("event.correlation_id", meta.CorrelationID),
		attribute.String("event.handler", t.sub.name),
		attribute.Int64("order.id", meta.OrderID),
	))
	defer span.End()

	err := b.invoke(ctx, t)
	if err != nil {
		b.failed.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.log.Error("event handler failed",
			"handler", t.sub.name,
			"event_type", eventType,
			"event_id", meta.EventID,
			"order_id", meta.OrderID,
			"err", err,
		)
	}
	b.metrics.HandlerFinished(eventType, t.sub.name, err, time.Since(start))
	b.metrics.QueueDepth(len(b.tasks))
}

func (b *Bus) invoke(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return t.sub.handle(ctx, t.ev)
}

func (b *Bus) track() {
	b.pendingMu.Lock()
	if b.pending == 0 {
		b.idle = make(chan struct{})
	}
	b.pending++
	b.pendingMu.Unlock()
}

func (b *Bus) untrack() {
	b.pendingMu.Lock()
	b.pending--
	if b.pending == 0 {
		close(b.idle)
	}
	b.pendingMu.Unlock()
}
