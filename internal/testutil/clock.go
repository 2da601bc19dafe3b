package testutil

import (
	"sync"
	"time"
)

// FakeClock is a manually advanced time source.
//
// Example usage:
//
//	clock := testutil.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
//	oracle := price.NewOracle(client, price.WithClock(clock.Now))
//	clock.Advance(61 * time.Second)
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock stopped at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
