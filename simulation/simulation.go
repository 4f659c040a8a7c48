// Package simulation glues a user-defined game value to an embedded
// event queue and entity store. A concrete game type embeds Simulation
// by value and forwards the handful of methods the server loop needs to
// it, since Go has no way to make an embedded struct's methods promote
// onto the outer pointer type automatically while also closing over
// that outer pointer as the queue's game parameter.
package simulation

import (
	"github.com/signalsfoundry/discretesim/entitystore"
	"github.com/signalsfoundry/discretesim/eventqueue"
)

// Simulation holds the event queue and entity store shared by a
// concrete game type G. G is instantiated as the game's pointer type
// (e.g. Simulation[*Game, simtime.Time]) so that events and
// interruptions, which receive G by value, can mutate the game through
// it.
type Simulation[G any, T eventqueue.Time[T]] struct {
	Queue *eventqueue.Queue[G, T]
	Store *entitystore.Store
}

// New returns a Simulation whose event queue starts at initialTime and
// whose entity store is empty.
func New[G any, T eventqueue.Time[T]](initialTime T) Simulation[G, T] {
	return Simulation[G, T]{
		Queue: eventqueue.New[G](initialTime),
		Store: entitystore.New(),
	}
}

// InvokeNext dispatches the next due batch of events against game.
func (s *Simulation[G, T]) InvokeNext(game G) {
	s.Queue.InvokeNext(game)
}

// Simulate drains every event due at or before until, then advances the
// queue's clock to until.
func (s *Simulation[G, T]) Simulate(game G, until T) {
	s.Queue.Simulate(game, until)
}

// ProgressTime advances the queue's clock to min(until, soonest pending
// time) and reports whether an event is due at or before until.
func (s *Simulation[G, T]) ProgressTime(until T) bool {
	return s.Queue.ProgressTime(until)
}

// Soonest reports the execute time of the earliest pending event, if
// any.
func (s *Simulation[G, T]) Soonest() (T, bool) {
	return s.Queue.Soonest()
}

// QueueDepth reports the number of live pending events, for metrics.
func (s *Simulation[G, T]) QueueDepth() int {
	return s.Queue.Len()
}
