// Package clock abstracts wall-clock time so time-based transitions
// (cooldowns, inactivity sweeps) can be driven from tests.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Real implements Clock using the system clock.
type Real struct{}

// New creates a Real clock.
func New() Real {
	return Real{}
}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now()
}
