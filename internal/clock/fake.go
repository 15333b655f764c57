package clock

import "time"

// FakeClock is a manually advanced Clock for tests that exercise the
// webhook freshness window, the email-fallback match window, and the
// abandonment sweep.
type FakeClock struct {
	now time.Time
}

// NewFakeClock pins the clock at t, normalized to UTC like the system
// clock.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
