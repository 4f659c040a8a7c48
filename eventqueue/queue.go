// Package eventqueue implements a time-ordered priority queue of
// one-shot callbacks over a shared game value G. Events scheduled for
// the same instant dispatch together, in the order they were enqueued;
// simulation time never moves backward.
package eventqueue

import (
	"time"

	"github.com/signalsfoundry/discretesim/internal/heap"
)

// Time is the constraint a queue's time type must satisfy: it must be
// usable as a map key (comparable), totally ordered via Compare
// (negative, zero, or positive as the receiver is before, equal to, or
// after other), and support relative scheduling via Add. simtime.Time
// satisfies this.
type Time[T any] interface {
	comparable
	Compare(other T) int
	Add(d time.Duration) T
}

// Event is a one-shot callback consumed on invocation. Implementations
// should not retain game beyond the call.
type Event[G any] interface {
	Invoke(game G)
}

// EventFunc adapts a plain function to Event, the way http.HandlerFunc
// adapts a function to http.Handler.
type EventFunc[G any] func(game G)

// Invoke calls f(game).
func (f EventFunc[G]) Invoke(game G) { f(game) }

// Handle identifies a previously enqueued event for cancellation.
type Handle[T any] struct {
	time T
	slot int
}

type bucket[G any] struct {
	// slots holds one entry per enqueued event at this time, in
	// insertion order; a nil entry marks a cancelled event.
	slots []Event[G]
}

// Queue is a time-ordered multiset of pending events. The zero value is
// not usable; construct one with New.
type Queue[G any, T Time[T]] struct {
	now     T
	buckets map[T]*bucket[G]
	times   *heap.Heap[T]
}

// New returns a queue whose clock starts at initialTime.
func New[G any, T Time[T]](initialTime T) *Queue[G, T] {
	return &Queue[G, T]{
		now:     initialTime,
		buckets: make(map[T]*bucket[G]),
		times: heap.New(func(a, b T) bool {
			return a.Compare(b) < 0
		}),
	}
}

// Now returns the queue's current simulation time.
func (q *Queue[G, T]) Now() T { return q.now }

// Soonest returns the execute time of the earliest pending event, if
// any. A time whose events were all cancelled still counts until that
// time is dispatched.
func (q *Queue[G, T]) Soonest() (T, bool) {
	for {
		t, ok := q.times.Peek()
		if !ok {
			var zero T
			return zero, false
		}
		b, present := q.buckets[t]
		if present && len(b.slots) > 0 {
			return t, true
		}
		// Stale heap entry left behind by a bucket that was fully
		// drained; discard and keep looking.
		q.times.Pop()
	}
}

// IsEmpty reports whether the queue holds no pending events. As with
// Soonest, cancelled events count until their time is dispatched.
func (q *Queue[G, T]) IsEmpty() bool {
	_, ok := q.Soonest()
	return !ok
}

// Len returns the number of live, not-yet-dispatched events pending
// across all time buckets, for reporting as a queue-depth metric.
// Cancelled slots are not counted.
func (q *Queue[G, T]) Len() int {
	n := 0
	for _, b := range q.buckets {
		for _, event := range b.slots {
			if event != nil {
				n++
			}
		}
	}
	return n
}

func (q *Queue[G, T]) hasEventBy(until T) bool {
	soonest, ok := q.Soonest()
	if !ok {
		return false
	}
	return soonest.Compare(until) <= 0
}

// EnqueueAbsolute schedules event to run at executeTime and returns a
// handle that can later cancel it.
func (q *Queue[G, T]) EnqueueAbsolute(event Event[G], executeTime T) Handle[T] {
	b, ok := q.buckets[executeTime]
	if !ok {
		b = &bucket[G]{}
		q.buckets[executeTime] = b
		q.times.Push(executeTime)
	}
	slot := len(b.slots)
	b.slots = append(b.slots, event)
	return Handle[T]{time: executeTime, slot: slot}
}

// EnqueueRelative schedules event to run at q.Now() advanced by delay.
func (q *Queue[G, T]) EnqueueRelative(event Event[G], delay time.Duration) Handle[T] {
	return q.EnqueueAbsolute(event, q.now.Add(delay))
}

// Cancel marks the event identified by handle as dead. It is a no-op if
// the event has already been dispatched or was already cancelled.
func (q *Queue[G, T]) Cancel(handle Handle[T]) {
	b, ok := q.buckets[handle.time]
	if !ok || handle.slot >= len(b.slots) {
		return
	}
	b.slots[handle.slot] = nil
}

// ProgressTime advances now to min(until, soonest pending time) and
// reports whether a pending event exists at or before until. If that
// target is earlier than now, now is left unchanged.
func (q *Queue[G, T]) ProgressTime(until T) bool {
	due := q.hasEventBy(until)
	target := until
	if due {
		target, _ = q.Soonest()
	}
	if q.now.Compare(target) < 0 {
		q.now = target
	}
	return due
}

// InvokeNext removes every event scheduled for the soonest pending
// time, advances now forward to that time if it was not already there,
// then dispatches the removed events in insertion order. Events enqueued by a
// dispatched callback at the same time as the current batch run on a
// later call, never the current one: the bucket is removed from the
// queue before any callback in it runs.
func (q *Queue[G, T]) InvokeNext(game G) {
	soonest, ok := q.Soonest()
	if !ok {
		return
	}
	b := q.buckets[soonest]
	delete(q.buckets, soonest)

	if q.now.Compare(soonest) < 0 {
		q.now = soonest
	}

	for _, event := range b.slots {
		if event == nil {
			continue
		}
		event.Invoke(game)
	}
}

// Simulate repeatedly invokes the soonest batch while its time is at or
// before until, then sets now to until unless now is already later.
func (q *Queue[G, T]) Simulate(game G, until T) {
	for q.hasEventBy(until) {
		q.InvokeNext(game)
	}
	if q.now.Compare(until) < 0 {
		q.now = until
	}
}
