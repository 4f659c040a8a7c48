package eventqueue

import (
	"testing"
	"time"

	"github.com/signalsfoundry/discretesim/simtime"
)

type game struct {
	order []string
}

func record(label string) EventFunc[*game] {
	return func(g *game) { g.order = append(g.order, label) }
}

func mustTime(s float64) simtime.Time { return simtime.MustNew(s) }

func TestDispatchOrderByTimeThenInsertion(t *testing.T) {
	g := &game{}
	q := New[*game](mustTime(0))
	q.EnqueueAbsolute(record("A"), mustTime(5))
	q.EnqueueAbsolute(record("B"), mustTime(3))
	q.EnqueueAbsolute(record("C"), mustTime(3))
	q.EnqueueAbsolute(record("D"), mustTime(10))

	q.Simulate(g, mustTime(20))

	want := []string{"B", "C", "A", "D"}
	if len(g.order) != len(want) {
		t.Fatalf("order = %v, want %v", g.order, want)
	}
	for i := range want {
		if g.order[i] != want[i] {
			t.Fatalf("order = %v, want %v", g.order, want)
		}
	}
}

func TestInvokeNextClampsNowForward(t *testing.T) {
	g := &game{}
	q := New[*game](mustTime(0))
	q.EnqueueAbsolute(record("A"), mustTime(10))
	q.InvokeNext(g)
	if q.Now().Compare(mustTime(10)) != 0 {
		t.Errorf("Now() = %v, want 10", q.Now())
	}
}

func TestInvokeNextNeverMovesNowBackward(t *testing.T) {
	g := &game{}
	q := New[*game](mustTime(50))
	q.EnqueueAbsolute(record("past"), mustTime(10))
	q.InvokeNext(g)
	if q.Now().Compare(mustTime(50)) != 0 {
		t.Errorf("Now() = %v, want unchanged at 50", q.Now())
	}
}

func TestProgressTime(t *testing.T) {
	q := New[*game](mustTime(0))
	q.EnqueueAbsolute(record("x"), mustTime(15))

	due := q.ProgressTime(mustTime(20))
	if !due {
		t.Errorf("ProgressTime = false, want true (event due by 20)")
	}
	if q.Now().Compare(mustTime(15)) != 0 {
		t.Errorf("Now() = %v, want 15", q.Now())
	}

	q2 := New[*game](mustTime(0))
	due2 := q2.ProgressTime(mustTime(20))
	if due2 {
		t.Errorf("ProgressTime = true, want false (empty queue)")
	}
	if q2.Now().Compare(mustTime(20)) != 0 {
		t.Errorf("Now() = %v, want 20", q2.Now())
	}
}

func TestCancelSkipsDispatch(t *testing.T) {
	g := &game{}
	q := New[*game](mustTime(0))
	h := q.EnqueueAbsolute(record("A"), mustTime(10))
	q.Cancel(h)
	q.Simulate(g, mustTime(20))
	if len(g.order) != 0 {
		t.Errorf("order = %v, want empty after cancel", g.order)
	}
	if !q.IsEmpty() {
		t.Errorf("IsEmpty() = false after draining a cancelled-only queue")
	}
}

func TestCancelAlreadyDispatchedIsNoop(t *testing.T) {
	g := &game{}
	q := New[*game](mustTime(0))
	h := q.EnqueueAbsolute(record("A"), mustTime(10))
	q.InvokeNext(g)
	q.Cancel(h) // must not panic or affect anything
	if len(g.order) != 1 {
		t.Errorf("order = %v, want [A]", g.order)
	}
}

func TestEventEnqueuedDuringInvokeRunsNextBatch(t *testing.T) {
	g := &game{}
	q := New[*game](mustTime(0))
	var self EventFunc[*game]
	self = func(g *game) {
		g.order = append(g.order, "self")
		q.EnqueueAbsolute(record("rescheduled"), mustTime(5))
	}
	q.EnqueueAbsolute(self, mustTime(5))

	q.InvokeNext(g) // dispatches "self" only; its own enqueue at t=5 is a new batch
	if len(g.order) != 1 || g.order[0] != "self" {
		t.Fatalf("after first InvokeNext: order = %v, want [self]", g.order)
	}
	q.InvokeNext(g)
	if len(g.order) != 2 || g.order[1] != "rescheduled" {
		t.Fatalf("after second InvokeNext: order = %v, want [self rescheduled]", g.order)
	}
}

func TestEnqueueRelative(t *testing.T) {
	q := New[*game](mustTime(100))
	q.EnqueueRelative(record("A"), 10*time.Second)
	soonest, ok := q.Soonest()
	if !ok || soonest.Compare(mustTime(110)) != 0 {
		t.Fatalf("Soonest() = %v, %v, want 110, true", soonest, ok)
	}
}

func TestSoonestMonotonicAfterEnqueue(t *testing.T) {
	q := New[*game](mustTime(0))
	q.EnqueueAbsolute(record("a"), mustTime(50))
	first, _ := q.Soonest()
	q.EnqueueAbsolute(record("b"), mustTime(30))
	second, _ := q.Soonest()
	if second.Compare(first) > 0 {
		t.Errorf("Soonest grew after enqueue: %v then %v", first, second)
	}
}
