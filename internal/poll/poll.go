// Package poll waits for conditions with bounded polling against an
// abstract clock.
package poll

import (
	"context"
	"time"
)

// Clock is the time source for deferred actions and waits.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RealClock is backed by package time.
type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// WaitUntil polls cond every interval until it returns true, the timeout
// elapses or ctx is done. It reports whether cond was satisfied.
func WaitUntil(ctx context.Context, clk Clock, timeout, interval time.Duration, cond func() bool) bool {
	if cond() {
		return true
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	deadline := clk.Now().Add(timeout)
	for {
		if !clk.Now().Before(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-clk.After(interval):
		}
		if cond() {
			return true
		}
	}
}
