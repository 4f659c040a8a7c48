package clock

import (
	"testing"
	"time"

	"github.com/signalsfoundry/discretesim/simtime"
)

func TestSimpleFreezesWhileStopped(t *testing.T) {
	c := NewSimple(simtime.MustNew(0))
	w0 := time.Now()
	if got := c.InGame(w0); got.Compare(simtime.MustNew(0)) != 0 {
		t.Fatalf("InGame before Start = %v, want 0", got)
	}
	if got := c.InGame(w0.Add(5 * time.Second)); got.Compare(simtime.MustNew(0)) != 0 {
		t.Fatalf("InGame while stopped = %v, want unchanged at 0", got)
	}
}

func TestSimpleAdvancesLinearlyWhileRunning(t *testing.T) {
	c := NewSimple(simtime.MustNew(0))
	w0 := time.Now()
	c.Start(w0)
	got := c.InGame(w0.Add(3 * time.Second))
	if got.Compare(simtime.MustNew(3)) != 0 {
		t.Fatalf("InGame after 3s running = %v, want 3", got)
	}
}

func TestSimpleStopFreezesAtCurrentValue(t *testing.T) {
	c := NewSimple(simtime.MustNew(0))
	w0 := time.Now()
	c.Start(w0)
	w1 := w0.Add(2 * time.Second)
	c.Stop(w1)
	w2 := w1.Add(10 * time.Second)
	if got := c.InGame(w2); got.Compare(simtime.MustNew(2)) != 0 {
		t.Fatalf("InGame after Stop = %v, want frozen at 2", got)
	}
}

func TestSimpleRestartIsStopThenStart(t *testing.T) {
	c := NewSimple(simtime.MustNew(0))
	w0 := time.Now()
	c.Start(w0)
	w1 := w0.Add(1 * time.Second)
	// Restarting while already running must not jump time: it is
	// defined as stop(now) followed by start(now).
	c.Start(w1)
	if got := c.InGame(w1); got.Compare(simtime.MustNew(1)) != 0 {
		t.Fatalf("InGame immediately after restart = %v, want 1", got)
	}
}

func TestSimpleMonotonic(t *testing.T) {
	c := NewSimple(simtime.MustNew(0))
	w0 := time.Now()
	c.Start(w0)
	t1 := c.InGame(w0.Add(1 * time.Second))
	t2 := c.InGame(w0.Add(2 * time.Second))
	if t1.After(t2) {
		t.Errorf("InGame not monotonic: t1=%v after t2=%v", t1, t2)
	}
}

func TestInstantClockAlwaysDue(t *testing.T) {
	var c Instant
	now := c.InGame(time.Now())
	if !now.After(simtime.MustNew(1e300)) {
		t.Errorf("InstantClock.InGame = %v, want a dominant finite sentinel", now)
	}
	if c.MinimumWait(simtime.MustNew(0), simtime.MustNew(1000)) != 0 {
		t.Errorf("InstantClock.MinimumWait should always be zero")
	}
}
