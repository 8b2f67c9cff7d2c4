package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant returned by a new DeterministicClock.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a thread-safe fake wall clock for tests.
//
// Every call to Now advances the clock by a fixed step, so timestamps and
// durations derived from it are reproducible across runs.
type DeterministicClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewDeterministicClock creates a clock starting at Epoch that advances by
// step on every Now call. A zero step freezes the clock.
func NewDeterministicClock(step time.Duration) *DeterministicClock {
	return &DeterministicClock{now: Epoch, step: step}
}

// Now returns the current instant and advances the clock.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Current returns the current instant without advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}
