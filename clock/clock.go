// Package clock abstracts the mapping between wall-clock time and
// simulation time, and lets that mapping pace (or not pace) the server
// loop. It generalizes the reference time controller's anchor/listener
// design from a fixed wall-clock tick to an arbitrary, pluggable
// simulation time type.
package clock

import (
	"sync"
	"time"

	"github.com/signalsfoundry/discretesim/simtime"
)

// Clock maps wall-clock instants to simulation time and receives
// feedback from the server loop about its progress. Implementations
// must never report a wait shorter than actually required: the loop
// trusts MinimumWait as a lower bound.
type Clock[T any] interface {
	// InGame returns the current simulation time as of wall-clock now.
	InGame(now time.Time) T
	// MinimumWait returns a lower bound on how long, in wall-clock
	// terms, the loop must wait before simulation time can reach
	// until, given it is currently at inGame.
	MinimumWait(inGame, until T) time.Duration
	// FinishedCycle reports that the loop just executed a step whose
	// simulation time was stepTime, observed at wall-clock now.
	FinishedCycle(now time.Time, stepTime T)
	// EndCycles reports that the loop is about to block or sleep with
	// no further immediate work.
	EndCycles()
}

// Simple is a linear wall-clock-to-simulation-time mapping: simulation
// time advances at the same rate as wall-clock time while started, and
// freezes while stopped.
type Simple struct {
	mu           sync.Mutex
	startInstant time.Time // zero value means "not running"
	lastTime     simtime.Time
}

// NewSimple returns a stopped Simple clock anchored at startTime.
func NewSimple(startTime simtime.Time) *Simple {
	return &Simple{lastTime: startTime}
}

func (c *Simple) elapsedAsOf(now time.Time) time.Duration {
	if c.startInstant.IsZero() {
		return 0
	}
	return now.Sub(c.startInstant)
}

// time returns the simulation time as of wall-clock now, without
// mutating state.
func (c *Simple) time(now time.Time) simtime.Time {
	return c.lastTime.Add(c.elapsedAsOf(now))
}

// Stop freezes the clock at its current simulation time.
func (c *Simple) Stop(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastTime = c.time(now)
	c.startInstant = time.Time{}
}

// Start anchors the clock to now. Calling Start while already running
// is equivalent to Stop followed by Start: it never causes time to
// jump.
func (c *Simple) Start(now time.Time) {
	c.mu.Lock()
	c.lastTime = c.time(now)
	c.startInstant = now
	c.mu.Unlock()
}

// InGame implements Clock[simtime.Time].
func (c *Simple) InGame(now time.Time) simtime.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time(now)
}

// MinimumWait implements Clock[simtime.Time].
func (*Simple) MinimumWait(inGame, until simtime.Time) time.Duration {
	return until.Sub(inGame)
}

// FinishedCycle implements Clock[simtime.Time] as a no-op: the simple
// clock never slows itself down based on progress.
func (*Simple) FinishedCycle(time.Time, simtime.Time) {}

// EndCycles implements Clock[simtime.Time] as a no-op.
func (*Simple) EndCycles() {}

// Instant always reports simulation time as immediately due: every
// pending event is treated as runnable right now, and the loop should
// never sleep waiting for simulation time to "catch up." It is for
// tests and batch runs where wall-clock pacing is irrelevant.
type Instant struct{}

// InGame always returns simtime.Max, a finite value no real event time
// will ever exceed, which makes every due-check in the server loop
// succeed immediately.
func (Instant) InGame(time.Time) simtime.Time { return simtime.Max }

// MinimumWait always returns zero: nothing should ever need to sleep
// under an Instant clock.
func (Instant) MinimumWait(simtime.Time, simtime.Time) time.Duration { return 0 }

// FinishedCycle is a no-op.
func (Instant) FinishedCycle(time.Time, simtime.Time) {}

// EndCycles is a no-op.
func (Instant) EndCycles() {}
