// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/accel_fusion/internal/imu"
	"github.com/relabs-tech/accel_fusion/internal/sched"
	"github.com/relabs-tech/accel_fusion/internal/sensors"
)

// Reader is one accelerometer source. Read issues a single blocking
// transaction on the device.
type Reader interface {
	Name() string
	Read() (imu.AccelSample, error)
}

// Consumer receives every fused vector. Accept must not fail.
type Consumer interface {
	Accept(imu.FusedVector)
}

// Stats counts cycle outcomes since the engine was created.
type Stats struct {
	Cycles  uint64 `json:"cycles"`
	Fused   uint64 `json:"fused"`
	Skipped uint64 `json:"skipped"`
}

// Engine runs fusion cycles: both sources are read as child tasks, joined,
// and fused. A failed or unavailable source skips the cycle; nothing is
// retried until the next one.
type Engine struct {
	internal Reader
	external Reader
	out      Consumer
	log      zerolog.Logger

	stats Stats
	last  *imu.FusedVector
}

// NewEngine builds an engine over the two sources. out may be nil.
func NewEngine(internal, external Reader, out Consumer, log zerolog.Logger) *Engine {
	return &Engine{
		internal: internal,
		external: external,
		out:      out,
		log:      log,
	}
}

// Cycle performs one fusion cycle on behalf of t. It returns an error only
// when t was cancelled; per-cycle faults are logged and absorbed.
func (e *Engine) Cycle(t *sched.Task) error {
	e.stats.Cycles++

	a := sched.Spawn(t, e.internal.Name(), e.internal.Read)
	b := sched.Spawn(t, e.external.Name(), e.external.Read)

	in, ex, err := sched.Join(t, a, b)
	if err != nil {
		if errors.Is(err, sched.ErrCancelled) {
			return err
		}
		e.skip(t, err)
		return nil
	}

	v, ok := Fuse(&in, &ex)
	if !ok {
		e.stats.Skipped++
		return nil
	}

	e.stats.Fused++
	e.last = &v
	if e.out != nil {
		e.out.Accept(v)
	}
	return nil
}

func (e *Engine) skip(t *sched.Task, err error) {
	e.stats.Skipped++

	source := "unknown"
	var je *sched.JoinError
	if errors.As(err, &je) {
		source = je.Source
	}

	ev := e.log.Warn()
	if errors.Is(err, sensors.ErrUnavailable) {
		ev = e.log.Debug()
	}
	ev.Str("task", t.Name()).Str("source", source).Err(err).Msg("no fused vector this cycle")
}

// Stats returns the cycle counters.
func (e *Engine) Stats() Stats { return e.stats }

// Last returns the most recent fused vector, if any cycle produced one.
func (e *Engine) Last() (imu.FusedVector, bool) {
	if e.last == nil {
		return imu.FusedVector{}, false
	}
	return *e.last, true
}
