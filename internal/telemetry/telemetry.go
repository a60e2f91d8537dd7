// Package telemetry records session events (mode switches, fallbacks,
// quality changes, benchmark results and errors) without ever blocking the
// frame loop. Events fan out to one or more sinks on a background goroutine.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/litescript/ls-orrery/internal/logging"
)

// EventType names a telemetry event.
type EventType string

const (
	EventEphemerisMode     EventType = "ephemeris_mode"
	EventEphemerisFallback EventType = "ephemeris_fallback"
	EventPositionMode      EventType = "position_mode"
	EventQualityTier       EventType = "quality_tier"
	EventBenchmarkResult   EventType = "benchmark_result"
	EventError             EventType = "error"
)

// Payload is the free-form body of an event.
type Payload map[string]any

// Event is one telemetry record.
type Event struct {
	Type      EventType `json:"eventType"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload,omitempty"`
}

// Sink persists or forwards events. Write is only called from the
// emitter's goroutine.
type Sink interface {
	Write(ctx context.Context, e Event) error
	Close() error
}

// DefaultBuffer is the number of events queued before new ones are dropped.
const DefaultBuffer = 256

// Emitter stamps events with the session id and hands them to its sinks.
type Emitter struct {
	session string
	sinks   []Sink
	log     *logging.Logger
	now     func() time.Time

	ch      chan Event
	quit    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	started atomic.Bool
	dropped atomic.Int64
	written atomic.Int64
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithSession overrides the generated session id.
func WithSession(id string) Option {
	return func(e *Emitter) { e.session = id }
}

// WithBuffer sets the queue length.
func WithBuffer(n int) Option {
	return func(e *Emitter) {
		if n > 0 {
			e.ch = make(chan Event, n)
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) { e.now = now }
}

// NewEmitter creates an emitter for sinks. With no sinks every event is
// logged at debug level only.
func NewEmitter(log *logging.Logger, sinks []Sink, opts ...Option) *Emitter {
	if log == nil {
		log = logging.Discard()
	}
	e := &Emitter{
		session: "sess_" + uuid.NewString(),
		sinks:   sinks,
		log:     log,
		now:     time.Now,
		ch:      make(chan Event, DefaultBuffer),
		quit:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session returns the session id stamped on every event.
func (e *Emitter) Session() string {
	return e.session
}

// Start launches the delivery goroutine.
func (e *Emitter) Start(ctx context.Context) {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case ev := <-e.ch:
				e.deliver(ctx, ev)
			case <-e.quit:
				e.flush(ctx)
				return
			case <-ctx.Done():
				e.flush(context.Background())
				return
			}
		}
	}()
}

// Emit queues an event. It never blocks: when the queue is full the event
// is dropped and counted.
func (e *Emitter) Emit(t EventType, payload Payload) {
	ev := Event{Type: t, SessionID: e.session, Timestamp: e.now().UTC(), Payload: payload}
	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
	}
}

// Error emits an error event for err tagged with where it happened.
func (e *Emitter) Error(where string, err error) {
	if err == nil {
		return
	}
	e.Emit(EventError, Payload{"context": where, "message": err.Error()})
}

// Dropped returns the number of events lost to a full queue.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

// Written returns the number of events delivered to every sink.
func (e *Emitter) Written() int64 {
	return e.written.Load()
}

// Close stops delivery after flushing queued events and closes every sink.
func (e *Emitter) Close() error {
	e.once.Do(func() { close(e.quit) })
	e.wg.Wait()
	if !e.started.Load() {
		e.flush(context.Background())
	}
	var first error
	for _, s := range e.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (e *Emitter) flush(ctx context.Context) {
	for {
		select {
		case ev := <-e.ch:
			e.deliver(ctx, ev)
		default:
			return
		}
	}
}

// deliver writes ev to every sink. Sink errors are logged and swallowed.
func (e *Emitter) deliver(ctx context.Context, ev Event) {
	if len(e.sinks) == 0 {
		e.log.Debug("telemetry %s %v", ev.Type, ev.Payload)
	}
	for _, s := range e.sinks {
		if err := s.Write(ctx, ev); err != nil {
			e.log.Warn("telemetry sink %T: %v", s, err)
		}
	}
	e.written.Add(1)
}
