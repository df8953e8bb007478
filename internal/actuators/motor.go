// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package actuators

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

// Direction of motor rotation.
type Direction int

const (
	Forward Direction = iota
	Reverse
	Brake
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	case Brake:
		return "brake"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Motor is one DRV8833 H-bridge channel driven by two PWM lines.
//
//	forward: IN1 = speed%, IN2 = 0
//	reverse: IN1 = 0,      IN2 = speed%
//	brake:   IN1 = 0,      IN2 = 0
type Motor struct {
	in1, in2 gpio.PinOut
	freq     physic.Frequency

	speed int
	dir   Direction
}

// NewMotor takes ownership of both lines and leaves the motor stopped.
func NewMotor(in1, in2 gpio.PinOut, freq physic.Frequency) (*Motor, error) {
	if in1 == nil || in2 == nil {
		return nil, fmt.Errorf("motor: both IN1 and IN2 pins are required")
	}
	if freq <= 0 {
		return nil, fmt.Errorf("motor: invalid PWM frequency %s", freq)
	}
	m := &Motor{in1: in1, in2: in2, freq: freq, dir: Brake}
	if err := m.Stop(); err != nil {
		return nil, err
	}
	return m, nil
}

// OpenMotor looks both pins up by name.
func OpenMotor(in1Name, in2Name string, freq physic.Frequency) (*Motor, error) {
	in1 := gpioreg.ByName(in1Name)
	if in1 == nil {
		return nil, fmt.Errorf("motor IN1 pin %q not found", in1Name)
	}
	in2 := gpioreg.ByName(in2Name)
	if in2 == nil {
		return nil, fmt.Errorf("motor IN2 pin %q not found", in2Name)
	}
	return NewMotor(in1, in2, freq)
}

// Drive sets speed in percent, clamped to [0, 100], in direction dir.
func (m *Motor) Drive(speed int, dir Direction) error {
	speed = clampSpeed(speed)

	var a, b int
	switch dir {
	case Forward:
		a = speed
	case Reverse:
		b = speed
	case Brake:
		speed = 0
	default:
		return fmt.Errorf("motor: unknown direction %s", dir)
	}

	if err := m.set(m.in1, a); err != nil {
		return fmt.Errorf("motor IN1: %w", err)
	}
	if err := m.set(m.in2, b); err != nil {
		return fmt.Errorf("motor IN2: %w", err)
	}
	m.speed, m.dir = speed, dir
	return nil
}

// Stop brakes the motor. It is the safe state used at shutdown.
func (m *Motor) Stop() error {
	return m.Drive(0, Brake)
}

// State returns the last speed and direction applied.
func (m *Motor) State() (int, Direction) { return m.speed, m.dir }

func (m *Motor) set(p gpio.PinOut, speed int) error {
	if speed == 0 {
		return p.Out(gpio.Low)
	}
	return p.PWM(dutyFor(speed), m.freq)
}

func clampSpeed(speed int) int {
	return max(0, min(100, speed))
}

func dutyFor(speed int) gpio.Duty {
	return gpio.Duty(int64(gpio.DutyMax) * int64(speed) / 100)
}
