// Package clock provides the time source used by the scheduling engine.
// Callers inject a Clock so that slot expiry and reminder cutoffs can be
// pinned in tests and replays.
package clock

import "time"

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns the wall clock, normalized to UTC.
func System() Clock {
	return systemClock{}
}

type fixedClock struct {
	t time.Time
}

func (f fixedClock) Now() time.Time { return f.t }

// Fixed returns a clock that always reports t.
func Fixed(t time.Time) Clock {
	return fixedClock{t: t.UTC()}
}

// Func adapts a plain function to the Clock interface.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// OrSystem returns c, or the system clock when c is nil.
func OrSystem(c Clock) Clock {
	if c == nil {
		return System()
	}
	return c
}
