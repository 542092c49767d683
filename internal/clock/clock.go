// Package clock abstracts the time source so that lifecycle timestamps and
// scheduler sweeps can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current instant and the current calendar date.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

// DateOf truncates t to midnight UTC of its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type realClock struct{}

// Real returns a Clock backed by the system time, in UTC.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time   { return time.Now().UTC() }
func (realClock) Today() time.Time { return DateOf(time.Now()) }

// FakeClock is a settable Clock. Time stands still until Advance or Set is
// called. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// Fake returns a FakeClock starting at initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial.UTC()}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Today returns the calendar date of the current fake time.
func (c *FakeClock) Today() time.Time {
	return DateOf(c.Now())
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set jumps the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t.UTC()
}
