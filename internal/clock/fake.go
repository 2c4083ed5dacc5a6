package clock

import "time"

// FakeClock is a manually advanced Clock for exercising pack expiry and
// billing-cycle resets without sleeping. Not safe for concurrent use.
type FakeClock struct {
	now time.Time
}

// NewFakeClock pins the clock at t. Times are normalized to UTC so
// comparisons against stored cycle bounds stay stable.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward, e.g. past a renewal boundary.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
