// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sched is a single-context cooperative scheduler.
//
// Every task body runs on its own goroutine, but the scheduler hands an
// execution baton to exactly one of them at a time and waits for it back.
// A task gives the baton back only at a suspension point (Yield, Sleep, or
// while waiting in Join) or when its body returns; it is never preempted.
// All scheduler and task state is touched only by the baton holder, so no
// locks are needed.
package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrCancelled is returned from suspension points once the task has been
	// cancelled. Task bodies should return it.
	ErrCancelled = errors.New("task cancelled")
	// ErrDeadlock means every remaining task waits on another and none can run.
	ErrDeadlock = errors.New("scheduler: no runnable task")
)

type state int

const (
	stateReady state = iota
	stateRunning
	stateSuspended // until deadline
	stateWaiting   // on child tasks
	stateDone
)

// Scheduler runs tasks in registration order among those that are runnable.
type Scheduler struct {
	clock Clock
	log   zerolog.Logger

	tasks  []*Task // registration order
	nextID uint64
	doneN  uint64
	baton  chan struct{}
}

// New returns a scheduler using clock, or the wall clock when nil.
func New(clock Clock, log zerolog.Logger) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{
		clock: clock,
		log:   log,
		baton: make(chan struct{}),
	}
}

// Every registers a top-level periodic task. fn runs immediately once Run
// starts, and after each return the task sleeps for period measured from the
// moment fn returned. An error from fn is logged and the next cycle proceeds.
// Every must be called before Run.
func (s *Scheduler) Every(name string, period time.Duration, fn func(*Task) error) {
	s.add(name, nil, func(t *Task) error {
		for {
			if err := fn(t); err != nil {
				if errors.Is(err, ErrCancelled) {
					return err
				}
				s.log.Warn().Str("task", name).Err(err).Msg("cycle failed")
			}
			if err := t.Sleep(period); err != nil {
				return err
			}
		}
	})
}

// Go registers a top-level task that runs once. Go must be called before Run.
func (s *Scheduler) Go(name string, fn func(*Task) error) {
	s.add(name, nil, fn)
}

func (s *Scheduler) add(name string, parent *Task, body func(*Task) error) *Task {
	t := &Task{
		s:      s,
		id:     s.nextID,
		name:   name,
		body:   body,
		parent: parent,
		state:  stateReady,
		resume: make(chan struct{}),
	}
	s.nextID++
	s.tasks = append(s.tasks, t)
	return t
}

// Run drives tasks until ctx is done or no task is left. On return every
// task has been cancelled and has unwound.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.drain()

	s.log.Debug().Int("tasks", len(s.tasks)).Msg("scheduler started")
	for {
		if ctx.Err() != nil {
			return nil
		}

		t, wait := s.next()
		if t != nil {
			s.step(t)
			s.reap()
			continue
		}
		if wait < 0 {
			if len(s.tasks) == 0 {
				return nil
			}
			return ErrDeadlock
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(wait):
		}
	}
}

// next picks the earliest-registered runnable task. When none is runnable it
// returns how long until the nearest deadline, or -1 if nothing is sleeping.
func (s *Scheduler) next() (*Task, time.Duration) {
	now := s.clock.Now()
	var nearest time.Time

	for _, t := range s.tasks {
		switch t.state {
		case stateReady:
			return t, 0
		case stateSuspended:
			if !t.deadline.After(now) {
				return t, 0
			}
			if nearest.IsZero() || t.deadline.Before(nearest) {
				nearest = t.deadline
			}
		}
	}

	if nearest.IsZero() {
		return nil, -1
	}
	return nil, nearest.Sub(now)
}

// step hands the baton to t and blocks until t suspends or finishes.
func (s *Scheduler) step(t *Task) {
	t.state = stateRunning
	if !t.started {
		t.started = true
		go t.run()
	} else {
		t.resume <- struct{}{}
	}
	<-s.baton
}

func (s *Scheduler) reap() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if t.state != stateDone {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}

// drain cancels every task and runs the started ones until they unwind.
func (s *Scheduler) drain() {
	for {
		for _, t := range s.tasks {
			t.cancel()
		}
		s.reap()
		if len(s.tasks) == 0 {
			break
		}
		s.step(s.tasks[0])
	}
	s.log.Debug().Msg("scheduler stopped")
}
