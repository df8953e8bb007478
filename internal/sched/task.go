// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sched

import "time"

// Task is a unit of cooperative work. Its methods may only be called from
// the task's own body while it holds the baton.
type Task struct {
	s      *Scheduler
	id     uint64
	name   string
	body   func(*Task) error
	parent *Task

	state     state
	deadline  time.Time
	started   bool
	cancelled bool
	err       error
	doneSeq   uint64

	resume chan struct{}
}

// Name returns the name the task was registered with.
func (t *Task) Name() string { return t.name }

// Now returns the scheduler clock's current time.
func (t *Task) Now() time.Time { return t.s.clock.Now() }

// Yield is an explicit suspension point: the task stays runnable but the
// scheduler re-evaluates which task runs next.
func (t *Task) Yield() error {
	return t.Sleep(0)
}

// Sleep suspends the task until d has elapsed on the scheduler clock.
func (t *Task) Sleep(d time.Duration) error {
	if t.cancelled {
		return ErrCancelled
	}
	t.deadline = t.Now().Add(d)
	t.state = stateSuspended
	return t.park()
}

// wait suspends until a child task finishes.
func (t *Task) wait() error {
	if t.cancelled {
		return ErrCancelled
	}
	t.state = stateWaiting
	return t.park()
}

func (t *Task) park() error {
	t.s.baton <- struct{}{}
	<-t.resume
	if t.cancelled {
		return ErrCancelled
	}
	return nil
}

func (t *Task) run() {
	err := t.body(t)
	t.finish(err)
	t.s.baton <- struct{}{}
}

func (t *Task) finish(err error) {
	t.state = stateDone
	t.err = err
	t.s.doneN++
	t.doneSeq = t.s.doneN
	if p := t.parent; p != nil && p.state == stateWaiting {
		p.state = stateReady
	}
}

// cancel marks t cancelled. A task that never started is finished on the
// spot; a started one is made runnable so it can unwind through ErrCancelled.
func (t *Task) cancel() {
	if t.state == stateDone {
		return
	}
	t.cancelled = true
	if !t.started {
		t.state = stateDone
		t.err = ErrCancelled
		return
	}
	if t.state == stateSuspended || t.state == stateWaiting {
		t.state = stateReady
	}
}
