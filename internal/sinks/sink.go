// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sinks holds the consumers of fused vectors. A sink's Accept is
// infallible from the caller's side: failures are logged inside the sink.
package sinks

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/accel_fusion/internal/fusion"
	"github.com/relabs-tech/accel_fusion/internal/imu"
)

// Sink consumes values of type T.
type Sink[T any] interface {
	Accept(T)
}

// Func adapts a function to a Sink.
type Func[T any] func(T)

func (f Func[T]) Accept(v T) { f(v) }

// Fanout hands each value to every sink in order.
type Fanout[T any] []Sink[T]

func (f Fanout[T]) Accept(v T) {
	for _, s := range f {
		s.Accept(v)
	}
}

// Payload is the wire and display form of one fused vector.
type Payload struct {
	imu.FusedVector
	fusion.Pose
	Time time.Time `json:"time"`
}

// NewPayload stamps v with its tilt and time.
func NewPayload(v imu.FusedVector, now time.Time) Payload {
	return Payload{FusedVector: v, Pose: fusion.Tilt(v), Time: now}
}

// Log writes every vector at info level.
type Log struct {
	log zerolog.Logger
}

func NewLog(log zerolog.Logger) *Log { return &Log{log: log} }

func (l *Log) Accept(v imu.FusedVector) {
	p := fusion.Tilt(v)
	l.log.Info().
		Float64("x", v.X).
		Float64("y", v.Y).
		Float64("z", v.Z).
		Float64("roll", p.Roll).
		Float64("pitch", p.Pitch).
		Msg(v.String())
}
