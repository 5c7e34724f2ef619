package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// Precision is the resolution of timestamps handed out by RealClock.
// Postgres keeps microseconds, so match times must not carry more.
const Precision = time.Microsecond

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the wall clock time truncated to Precision, without a
// monotonic reading, so it compares equal after a storage round trip.
func (c *RealClock) Now() time.Time {
	return time.Now().Round(0).Truncate(Precision)
}
