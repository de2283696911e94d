package store

import (
	"sync"
	"time"
)

// Clock is the twin's time source. A running clock follows wall time plus an
// offset; a frozen clock starts at a fixed instant and only moves when
// advanced, which makes simulated delays instantaneous in tests.
type Clock struct {
	mu     sync.RWMutex
	offset time.Duration
	frozen bool
	base   time.Time
}

// NewClock creates a running clock with no offset.
func NewClock() *Clock {
	return &Clock{}
}

// NewFrozenClock creates a clock pinned at t.
func NewFrozenClock(t time.Time) *Clock {
	return &Clock{frozen: true, base: t}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.frozen {
		return c.base.Add(c.offset)
	}
	return time.Now().Add(c.offset)
}

// Sleep blocks for d on a running clock. On a frozen clock it advances
// simulated time by d and returns at once.
func (c *Clock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.RLock()
	frozen := c.frozen
	c.mu.RUnlock()
	if frozen {
		c.Advance(d)
		return
	}
	time.Sleep(d)
}

// Frozen reports whether the clock is pinned.
func (c *Clock) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

// Advance moves simulated time forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

// Reset drops any accumulated offset.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = 0
}

// Offset returns the accumulated offset.
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}
