// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/accel_fusion/internal/sched/schedtest"
)

var errSensor = errors.New("bus fault")

func TestJoinReturnsBothResults(t *testing.T) {
	s := New(nil, zerolog.Nop())

	var order []string
	var gotA int
	var gotB string
	s.Go("fusion", func(t *Task) error {
		a := Spawn(t, "internal", func() (int, error) {
			order = append(order, "internal")
			return 42, nil
		})
		b := Spawn(t, "external", func() (string, error) {
			order = append(order, "external")
			return "ok", nil
		})
		var err error
		gotA, gotB, err = Join(t, a, b)
		return err
	})

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 42, gotA)
	assert.Equal(t, "ok", gotB)
	assert.Equal(t, []string{"internal", "external"}, order)
}

func TestJoinFailsFastOnFirstSource(t *testing.T) {
	s := New(nil, zerolog.Nop())

	externalCalls := 0
	var joinErr error
	s.Go("fusion", func(t *Task) error {
		a := Spawn(t, "internal", func() (float64, error) {
			return 0, errSensor
		})
		b := Spawn(t, "external", func() (float64, error) {
			externalCalls++
			return 1, nil
		})
		_, _, joinErr = Join(t, a, b)
		return nil
	})

	require.NoError(t, s.Run(context.Background()))

	var je *JoinError
	require.ErrorAs(t, joinErr, &je)
	assert.Equal(t, "internal", je.Source)
	assert.ErrorIs(t, joinErr, errSensor)
	assert.Zero(t, externalCalls, "no result is requested from a task that never completed")
}

func TestJoinIdentifiesSecondSource(t *testing.T) {
	s := New(nil, zerolog.Nop())

	var joinErr error
	s.Go("fusion", func(t *Task) error {
		a := Spawn(t, "internal", func() (float64, error) { return 1, nil })
		b := Spawn(t, "external", func() (float64, error) { return 0, errSensor })
		_, _, joinErr = Join(t, a, b)
		return nil
	})

	require.NoError(t, s.Run(context.Background()))

	var je *JoinError
	require.ErrorAs(t, joinErr, &je)
	assert.Equal(t, "external", je.Source)
}

func TestSpawnedTaskYieldsOnce(t *testing.T) {
	clock := schedtest.NewClock(time.Hour, nil)
	s := New(clock, zerolog.Nop())

	var trace []string
	read := func(name string) func() (int, error) {
		return func() (int, error) {
			clock.Advance(10 * time.Millisecond)
			trace = append(trace, name)
			return 1, nil
		}
	}
	s.Go("fusion", func(t *Task) error {
		a := Spawn(t, "internal", read("internal"))
		b := Spawn(t, "external", read("external"))
		_, _, err := Join(t, a, b)
		trace = append(trace, "joined")
		return err
	})
	s.Go("background", func(t *Task) error {
		if err := t.Sleep(5 * time.Millisecond); err != nil {
			return err
		}
		trace = append(trace, "background")
		return nil
	})

	require.NoError(t, s.Run(context.Background()))
	// background becomes due during the first read and gets the baton at
	// that read's suspension point, before the second read starts.
	assert.Equal(t, []string{"internal", "background", "external", "joined"}, trace)
}

func TestRunCancelsTasksOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := schedtest.NewClock(2*time.Second, cancel)
	s := New(clock, zerolog.Nop())

	var cycles int
	var exitErr error
	s.Go("loop", func(t *Task) error {
		for {
			cycles++
			if err := t.Sleep(300 * time.Millisecond); err != nil {
				exitErr = err
				return err
			}
		}
	})

	require.NoError(t, s.Run(ctx))
	assert.ErrorIs(t, exitErr, ErrCancelled)
	assert.Equal(t, 7, cycles) // 0, 300, ..., 1800 ms
	assert.Empty(t, s.tasks)
}

func TestPeriodicErrorsDoNotStopScheduler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := schedtest.NewClock(time.Second, cancel)
	s := New(clock, zerolog.Nop())

	var cycles int
	s.Every("flaky", 100*time.Millisecond, func(t *Task) error {
		cycles++
		return errSensor
	})

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 10, cycles)
}

func TestFairnessUnderBlockingFusion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := schedtest.NewClock(10*time.Second, cancel)
	s := New(clock, zerolog.Nop())

	const readCost = 10 * time.Millisecond
	blockingRead := func() (float64, error) {
		clock.Advance(readCost)
		return 1, nil
	}

	var (
		toggles  int
		fusions  int
		inFlight bool
		overlap  bool
	)
	s.Every("fusion", 200*time.Millisecond, func(t *Task) error {
		if inFlight {
			overlap = true
		}
		inFlight = true
		defer func() { inFlight = false }()

		a := Spawn(t, "internal", blockingRead)
		b := Spawn(t, "external", blockingRead)
		if _, _, err := Join(t, a, b); err != nil {
			return err
		}
		fusions++
		return nil
	})
	s.Every("indicator", 500*time.Millisecond, func(t *Task) error {
		toggles++
		return nil
	})

	require.NoError(t, s.Run(ctx))
	assert.InDelta(t, 20, toggles, 1)
	assert.False(t, overlap, "fusion cycles must not overlap")
	assert.Greater(t, fusions, 40)
}

func TestCancelUnstartedChild(t *testing.T) {
	s := New(nil, zerolog.Nop())

	var child *Task
	s.Go("parent", func(t *Task) error {
		f := Spawn(t, "child", func() (int, error) { return 1, nil })
		child = f.task
		child.cancel()
		return nil
	})

	require.NoError(t, s.Run(context.Background()))
	require.NotNil(t, child)
	assert.False(t, child.started)
	assert.ErrorIs(t, child.err, ErrCancelled)
}
