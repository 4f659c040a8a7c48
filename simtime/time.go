// Package simtime provides the opaque, totally-ordered scalar type used
// to stamp events in an event queue. A Time value stands in for
// "simulation time": it is compared and added (and formatted only for
// display, via String), and it rejects NaN and infinities at construction so every
// later comparison is total.
package simtime

import (
	"fmt"
	"math"
	"time"
)

// Time is a finite point in simulation time. The zero value is Time(0),
// a valid value; use New to construct one from an arbitrary float and
// reject non-finite input.
type Time struct {
	seconds float64
}

// New builds a Time from a count of seconds. It returns false if val is
// NaN or infinite, mirroring the reference implementation's rejection of
// non-finite values at construction.
func New(val float64) (Time, bool) {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return Time{}, false
	}
	return Time{seconds: val}, true
}

// MustNew is New but panics on non-finite input. Intended for literals
// and test fixtures where the value is known to be finite.
func MustNew(val float64) Time {
	t, ok := New(val)
	if !ok {
		panic(fmt.Sprintf("simtime: non-finite time %v", val))
	}
	return t
}

// Seconds returns the underlying scalar.
func (t Time) Seconds() float64 { return t.seconds }

// Add returns t advanced by d.
func (t Time) Add(d time.Duration) Time {
	return Time{seconds: t.seconds + d.Seconds()}
}

// Sub returns the wall-clock-shaped duration between t and other
// (t - other), expressed as a time.Duration.
func (t Time) Sub(other Time) time.Duration {
	return time.Duration((t.seconds - other.seconds) * float64(time.Second))
}

// Before reports whether t occurs strictly before other.
func (t Time) Before(other Time) bool { return t.seconds < other.seconds }

// After reports whether t occurs strictly after other.
func (t Time) After(other Time) bool { return t.seconds > other.seconds }

// Equal reports whether t and other denote the same instant.
func (t Time) Equal(other Time) bool { return t.seconds == other.seconds }

// Compare returns -1, 0, or +1 as t is before, equal to, or after other.
// It gives Time the shape cmp.Compare and slices.SortFunc expect.
func (t Time) Compare(other Time) int {
	switch {
	case t.seconds < other.seconds:
		return -1
	case t.seconds > other.seconds:
		return 1
	default:
		return 0
	}
}

func (t Time) String() string {
	return fmt.Sprintf("%gs", t.seconds)
}

// Max is a finite sentinel larger than any time value a real clock will
// produce. It lets an "always due" clock report a legal, finite Time
// rather than an infinity the type itself forbids.
var Max = Time{seconds: math.MaxFloat64}
