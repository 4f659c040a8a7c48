// Package server implements the scheduler loop that drives a
// Simulator: it interleaves draining due events, sleeping under clock
// control, and applying externally delivered interruptions, until told
// to stop.
package server

import (
	"context"
	"time"

	"github.com/signalsfoundry/discretesim/clock"
	"github.com/signalsfoundry/discretesim/eventqueue"
	"github.com/signalsfoundry/discretesim/internal/logging"
	"github.com/signalsfoundry/discretesim/internal/observability"
	"github.com/signalsfoundry/discretesim/internal/tracing"
	"go.opentelemetry.io/otel/trace"
)

// Simulator is what a concrete game type must expose to be driven by a
// Server: access to its event queue's soonest pending time, the ability
// to dispatch the next due batch, and the ability to fast-forward its
// clock to a point with no intervening events.
type Simulator[T any] interface {
	Soonest() (T, bool)
	InvokeNext()
	ProgressTime(until T) bool
}

// Interruption is an externally delivered, one-shot command that
// mutates game. Returning true requests that the server stop after this
// interruption is applied.
type Interruption[G any] interface {
	Update(game G) bool
}

// Receiver is the consumer side of the external channel the server
// reads interruptions from.
type Receiver[I any] interface {
	// TryRecv returns immediately: (value, true) if one was waiting,
	// otherwise (zero, false).
	TryRecv() (I, bool)
	// RecvTimeout blocks for up to d. Returns (value, true) if one
	// arrived in time, otherwise (zero, false) on timeout.
	RecvTimeout(d time.Duration) (I, bool)
	// Recv blocks until a value arrives or the channel is closed.
	// Returns (zero, false) only when closed with nothing left to
	// deliver.
	Recv() (I, bool)
}

// ChannelReceiver adapts a plain receive-only channel to Receiver.
type ChannelReceiver[I any] struct {
	ch <-chan I
}

// NewChannelReceiver wraps ch as a Receiver.
func NewChannelReceiver[I any](ch <-chan I) ChannelReceiver[I] {
	return ChannelReceiver[I]{ch: ch}
}

// TryRecv implements Receiver.
func (r ChannelReceiver[I]) TryRecv() (I, bool) {
	select {
	case v, ok := <-r.ch:
		return v, ok
	default:
		var zero I
		return zero, false
	}
}

// RecvTimeout implements Receiver.
func (r ChannelReceiver[I]) RecvTimeout(d time.Duration) (I, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case v, ok := <-r.ch:
		return v, ok
	case <-timer.C:
		var zero I
		return zero, false
	}
}

// Recv implements Receiver.
func (r ChannelReceiver[I]) Recv() (I, bool) {
	v, ok := <-r.ch
	return v, ok
}

// Option configures a Server at construction time.
type Option[G Simulator[T], I Interruption[G], T eventqueue.Time[T]] func(*Server[G, I, T])

// WithLogger sets the logger the server uses for lifecycle events.
func WithLogger[G Simulator[T], I Interruption[G], T eventqueue.Time[T]](log logging.Logger) Option[G, I, T] {
	return func(s *Server[G, I, T]) { s.log = log }
}

// WithMetrics sets the collector the server reports scheduler metrics
// to.
func WithMetrics[G Simulator[T], I Interruption[G], T eventqueue.Time[T]](m *observability.Collector) Option[G, I, T] {
	return func(s *Server[G, I, T]) { s.metrics = m }
}

// WithTracing enables OpenTelemetry spans around dispatch and
// interruption handling. Call tracing.Init beforehand so the active
// tracer provider is the configured one.
func WithTracing[G Simulator[T], I Interruption[G], T eventqueue.Time[T]](enabled bool) Option[G, I, T] {
	return func(s *Server[G, I, T]) { s.traced = enabled }
}

// Server runs the scheduler loop over a game of type G, receiving
// interruptions of type I, paced by a Clock[T].
type Server[G Simulator[T], I Interruption[G], T eventqueue.Time[T]] struct {
	game     G
	external Receiver[I]
	clock    clock.Clock[T]
	log      logging.Logger
	metrics  *observability.Collector
	traced   bool
}

// New constructs a Server. game, external, and clockImpl are owned by
// the server for the duration of Run.
func New[G Simulator[T], I Interruption[G], T eventqueue.Time[T]](
	game G,
	external Receiver[I],
	clockImpl clock.Clock[T],
	opts ...Option[G, I, T],
) *Server[G, I, T] {
	s := &Server[G, I, T]{
		game:     game,
		external: external,
		clock:    clockImpl,
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// applyUpdate advances the game's clock toward inGame via ProgressTime
// (stopping at the soonest pending event if that is earlier), then runs
// upd against it. It returns the result of upd.Update, not of the time
// advance.
func (s *Server[G, I, T]) applyUpdate(ctx context.Context, cycleID uint64, upd I, inGame T) bool {
	fields := []logging.Field{
		logging.Any("cycle_id", cycleID),
		logging.Any("in_game", inGame),
	}
	if s.traced {
		var span trace.Span
		ctx, span = tracing.Tracer().Start(ctx, "server.apply_update")
		tracing.Annotate(span, fields...)
		defer span.End()
	}
	s.log.Debug(ctx, "applying interruption", fields...)
	s.game.ProgressTime(inGame)
	stop := upd.Update(s.game)
	s.metrics.IncInterruptionsApplied()
	return stop
}

// invokeNext times one dispatch batch and reports it to tracing and
// metrics before returning.
func (s *Server[G, I, T]) invokeNext(ctx context.Context, cycleID uint64, inGame T) {
	fields := []logging.Field{
		logging.Any("cycle_id", cycleID),
		logging.Any("in_game", inGame),
	}
	if s.traced {
		var span trace.Span
		ctx, span = tracing.Tracer().Start(ctx, "server.invoke_next")
		tracing.Annotate(span, fields...)
		defer span.End()
	}
	start := time.Now()
	s.game.InvokeNext()
	elapsed := time.Since(start)
	s.log.Debug(ctx, "dispatched events", append(fields, logging.Duration("elapsed", elapsed))...)
	s.metrics.ObserveDispatch(elapsed, 1)
}

// recvTimeoutOrSleep performs a bounded receive for up to sleepFor. If
// it returns without a value, it sleeps out the remainder of sleepFor
// measured from anchor, so that callers can rely on at least sleepFor
// wall-clock time having elapsed before the loop is re-entered even if
// the bounded receive wakes early.
func (s *Server[G, I, T]) recvTimeoutOrSleep(sleepFor time.Duration, anchor time.Time) (I, bool) {
	sleepUntil := anchor.Add(sleepFor)
	upd, ok := s.external.RecvTimeout(sleepFor)
	if !ok {
		if remaining := sleepUntil.Sub(time.Now()); remaining > 0 {
			time.Sleep(remaining)
		}
	}
	return upd, ok
}

// Run drives the loop until the external channel closes with nothing
// left to apply, or an Interruption's Update returns true. It always
// calls clock.EndCycles() once more before returning.
func (s *Server[G, I, T]) Run(ctx context.Context) {
	var pending I
	havePending := false
	shouldExit := false

	for !shouldExit {
		if ctx.Err() != nil {
			break
		}
		cycleID := logging.NextCycleID()
		now := time.Now()
		inGame := s.clock.InGame(now)

		if !havePending {
			pending, havePending = s.external.TryRecv()
		}

		switch {
		case havePending:
			upd := pending
			havePending = false
			s.clock.FinishedCycle(now, inGame)
			shouldExit = s.applyUpdate(ctx, cycleID, upd, inGame)

		default:
			if et, ok := s.game.Soonest(); ok {
				if et.Compare(inGame) <= 0 {
					s.clock.FinishedCycle(now, et)
					s.invokeNext(ctx, cycleID, et)
				} else {
					s.clock.EndCycles()
					sleepFor := s.clock.MinimumWait(inGame, et)
					pending, havePending = s.recvTimeoutOrSleep(sleepFor, now)
				}
			} else {
				s.clock.EndCycles()
				pending, havePending = s.external.Recv()
				shouldExit = !havePending
			}
		}
	}
	s.clock.EndCycles()
}
