// Package globaltime is the clock used for every persisted timestamp,
// so tests can pin time without threading a clock through each
// constructor.
package globaltime

import (
	"sync/atomic"
	"time"
)

var frozen atomic.Pointer[time.Time]

// Now returns the current time, or the frozen instant during tests.
func Now() time.Time {
	if t := frozen.Load(); t != nil {
		return *t
	}
	return time.Now()
}

// UTC is shorthand for Now().UTC(); stored timestamps are always UTC.
func UTC() time.Time {
	return Now().UTC()
}

// Freeze pins the clock to t and returns a restore func. Intended for
// tests, typically as `defer globaltime.Freeze(fixed)()`.
func Freeze(t time.Time) func() {
	frozen.Store(&t)
	return func() { frozen.Store(nil) }
}
