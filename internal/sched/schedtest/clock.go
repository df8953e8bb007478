// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package schedtest provides a simulated clock for driving the scheduler in
// tests without waiting on the wall clock.
package schedtest

import (
	"sync"
	"time"
)

// Epoch is the simulated time at which every Clock starts.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Clock only moves when the scheduler waits on it or a test calls Advance.
// Once it reaches its limit it calls stop, which is typically the cancel
// function of the scheduler's context.
type Clock struct {
	mu    sync.Mutex
	now   time.Time
	limit time.Time
	stop  func()
}

// NewClock returns a clock that calls stop once limit has elapsed. stop may
// be nil.
func NewClock(limit time.Duration, stop func()) *Clock {
	return &Clock{now: Epoch, limit: Epoch.Add(limit), stop: stop}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After advances the clock by d and returns a channel that is already
// readable.
func (c *Clock) After(d time.Duration) <-chan time.Time {
	now := c.Advance(d)
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Advance moves the clock forward, standing in for time spent blocked.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now, expired := c.now, !c.now.Before(c.limit)
	c.mu.Unlock()

	if expired && c.stop != nil {
		c.stop()
	}
	return now
}

// Elapsed returns the simulated time since Epoch.
func (c *Clock) Elapsed() time.Duration {
	return c.Now().Sub(Epoch)
}
