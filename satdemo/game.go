// Package satdemo is the worked example domain exercising the discrete-
// event engine end to end: a handful of orbiting satellites whose
// position is recomputed by a self-rescheduling event driven by a real
// SGP4 propagator, with satellites addable at runtime through an
// externally delivered interruption.
package satdemo

import (
	"time"

	"github.com/signalsfoundry/discretesim/entitystore"
	"github.com/signalsfoundry/discretesim/internal/logging"
	"github.com/signalsfoundry/discretesim/internal/observability"
	"github.com/signalsfoundry/discretesim/simtime"
	"github.com/signalsfoundry/discretesim/simulation"
)

// Game is the concrete simulation driven by a server.Server: it embeds
// a Simulation by value and forwards the zero-argument methods the
// server loop needs, since Go cannot promote an embedded generic
// struct's methods onto the outer pointer type while also closing over
// that pointer as the queue's game parameter.
type Game struct {
	simulation.Simulation[*Game, simtime.Time]

	// Epoch is the wall-clock instant corresponding to simtime.Time(0).
	// Position updates convert the current simulation time back to a
	// calendar date through Epoch before calling into SGP4, which
	// operates on real dates, not an arbitrary simulation-time origin.
	Epoch time.Time
	// Tick is the interval a satellite's position update reschedules
	// itself after.
	Tick time.Duration

	log     logging.Logger
	metrics *observability.Collector
}

// Option configures a Game at construction time.
type Option func(*Game)

// WithLogger sets the logger the game uses when satellites are added or
// removed.
func WithLogger(log logging.Logger) Option {
	return func(g *Game) { g.log = log }
}

// WithMetrics wires a collector that observes queue depth as satellites
// are added.
func WithMetrics(m *observability.Collector) Option {
	return func(g *Game) { g.metrics = m }
}

// New returns a Game with an empty entity store and event queue, whose
// simulation clock starts at zero and maps back to epoch in wall-clock
// terms.
func New(epoch time.Time, tick time.Duration, opts ...Option) *Game {
	g := &Game{
		Simulation: simulation.New[*Game](simtime.MustNew(0)),
		Epoch:      epoch,
		Tick:       tick,
		log:        logging.Noop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// InvokeNext implements server.Simulator by forwarding to the embedded
// Simulation, passing g itself as the game value events mutate.
func (g *Game) InvokeNext() { g.Simulation.InvokeNext(g) }

// Simulate implements server.Simulator by forwarding to the embedded
// Simulation.
func (g *Game) Simulate(until simtime.Time) { g.Simulation.Simulate(g, until) }

// ProgressTime implements server.Simulator by forwarding to the embedded
// Simulation.
func (g *Game) ProgressTime(until simtime.Time) bool { return g.Simulation.ProgressTime(until) }

// Soonest implements server.Simulator by forwarding to the embedded
// Simulation.
func (g *Game) Soonest() (simtime.Time, bool) { return g.Simulation.Soonest() }

// wallTime converts a simulation time back to the calendar date it
// corresponds to, for handing to SGP4.
func (g *Game) wallTime(t simtime.Time) time.Time {
	return g.Epoch.Add(t.Sub(simtime.MustNew(0)))
}

// AddSatellite registers a new satellite entity propagated from the
// given two-line element set and schedules its first position update at
// the current simulation time. It returns the UID the satellite was
// stored under.
func (g *Game) AddSatellite(name, tleLine1, tleLine2 string) entitystore.UID {
	sat := newSatellite(name, tleLine1, tleLine2)
	uid := entitystore.Add(g.Store, sat)
	g.Queue.EnqueueAbsolute(updatePositionEvent{uid: uid}, g.Queue.Now())
	if g.metrics != nil {
		g.metrics.SetQueueDepth(g.Simulation.QueueDepth())
	}
	return uid
}

// RemoveSatellite deletes the satellite stored under uid, if present. A
// pending position-update event for it simply finds nothing at uid on
// its next firing and stops rescheduling itself; there is no handle to
// cancel it directly, since AddSatellite does not retain one.
func (g *Game) RemoveSatellite(uid entitystore.UID) (Satellite, bool) {
	v, ok := entitystore.Remove[Satellite](g.Store, uid)
	if g.metrics != nil {
		g.metrics.SetQueueDepth(g.Simulation.QueueDepth())
	}
	return v, ok
}
