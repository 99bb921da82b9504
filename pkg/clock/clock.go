// Package clock abstracts wall-clock time for the control loop.
//
// The loop never sleeps. It polls Now and calls Tick between polls, so a
// fake clock can move simulated time forward on every poll and tests run
// with zero real delay.
package clock

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Clock is the time source used by every suspension point.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Tick is called once per poll iteration of a busy-wait.
	Tick()
}

// Real is the wall clock.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// Tick yields the processor so a busy-wait does not starve other goroutines.
func (Real) Tick() { runtime.Gosched() }

// Since returns the time elapsed on c since t.
func Since(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Busy polls c until d has elapsed. It checks ctx on every poll and returns
// ctx.Err() if cancelled. A non-positive d returns immediately.
func Busy(ctx context.Context, c Clock, d time.Duration) error {
	start := c.Now()
	for c.Now().Sub(start) < d {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Tick()
	}
	return nil
}

// Fake is a manually driven clock. Each Tick advances it by Step.
type Fake struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration

	onTick func(now time.Time)
}

// NewFake returns a fake clock at start that advances step per Tick.
func NewFake(start time.Time, step time.Duration) *Fake {
	return &Fake{now: start, step: step}
}

// Now returns the simulated time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Tick advances simulated time by the configured step.
func (f *Fake) Tick() {
	f.mu.Lock()
	f.now = f.now.Add(f.step)
	now, hook := f.now, f.onTick
	f.mu.Unlock()

	if hook != nil {
		hook(now)
	}
}

// Advance moves simulated time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set jumps to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// SetStep changes how far each Tick advances.
func (f *Fake) SetStep(d time.Duration) {
	f.mu.Lock()
	f.step = d
	f.mu.Unlock()
}

// OnTick registers a hook run after every Tick with the new time.
// Tests use it to cancel a context at a chosen simulated instant.
func (f *Fake) OnTick(fn func(now time.Time)) {
	f.mu.Lock()
	f.onTick = fn
	f.mu.Unlock()
}
