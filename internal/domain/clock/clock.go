// Package clock assigns the logical timestamps used as the archive sort key.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock yields strictly increasing microsecond ticks since the Unix epoch.
//
// [RESOLUTION]
// Microseconds keep every tick exactly representable as a float64 sorted-set
// score (well below 2^53) while still giving sub-millisecond ordering.
type Clock struct {
	last atomic.Int64
	now  func() time.Time
}

// Option configures a Clock.
type Option func(*Clock)

// WithSource replaces the wall-clock source.
func WithSource(now func() time.Time) Option {
	return func(c *Clock) {
		c.now = now
	}
}

func New(opts ...Option) *Clock {
	c := &Clock{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tick returns the next timestamp. Safe for concurrent use; two calls never
// return the same value, and a call that happens-after another returns a larger one.
func (c *Clock) Tick() int64 {
	for {
		prev := c.last.Load()
		next := c.now().UnixMicro()
		if next <= prev {
			next = prev + 1
		}
		if c.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// Time converts a tick back to wall-clock time.
func Time(tick int64) time.Time {
	return time.UnixMicro(tick)
}
