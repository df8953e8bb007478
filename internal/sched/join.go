// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sched

import "fmt"

// Future is the pending result of a task started with Spawn.
type Future[T any] struct {
	task *Task
	val  T
}

// Spawn wraps a blocking operation into a child task of parent. The child
// runs op to completion without interruption, then suspends exactly once
// before finishing with op's result. If op fails the child finishes at once.
func Spawn[T any](parent *Task, name string, op func() (T, error)) *Future[T] {
	f := &Future[T]{}
	f.task = parent.s.add(name, parent, func(t *Task) error {
		v, err := op()
		if err != nil {
			return err
		}
		f.val = v
		return t.Yield()
	})
	return f
}

// JoinError reports which joined source failed.
type JoinError struct {
	Source string
	Err    error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join: source %q failed: %v", e.Source, e.Err)
}

func (e *JoinError) Unwrap() error { return e.Err }

// Join suspends t until both futures complete and returns both results.
// Both futures must have been spawned by t. As soon as either fails, the
// other is cancelled and a *JoinError naming the failed source is returned;
// the caller never sees one result without the other.
func Join[A, B any](t *Task, a *Future[A], b *Future[B]) (A, B, error) {
	var (
		zeroA A
		zeroB B
	)
	for {
		if failed := firstFailed(a.task, b.task); failed != nil {
			a.task.cancel()
			b.task.cancel()
			return zeroA, zeroB, &JoinError{Source: failed.name, Err: failed.err}
		}
		if a.task.state == stateDone && b.task.state == stateDone {
			return a.val, b.val, nil
		}
		if err := t.wait(); err != nil {
			a.task.cancel()
			b.task.cancel()
			return zeroA, zeroB, err
		}
	}
}

func firstFailed(tasks ...*Task) *Task {
	var first *Task
	for _, t := range tasks {
		if t.state != stateDone || t.err == nil {
			continue
		}
		if first == nil || t.doneSeq < first.doneSeq {
			first = t
		}
	}
	return first
}
