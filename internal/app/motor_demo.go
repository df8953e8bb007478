// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/accel_fusion/internal/actuators"
	"github.com/relabs-tech/accel_fusion/internal/config"
	"github.com/relabs-tech/accel_fusion/internal/logger"
	"github.com/relabs-tech/accel_fusion/internal/sched"
)

// MotorStep is one leg of the demo sequence.
type MotorStep struct {
	Speed int
	Dir   actuators.Direction
	Hold  time.Duration
}

// DemoSequence runs forward, brakes, runs in reverse and brakes again.
var DemoSequence = []MotorStep{
	{Speed: 60, Dir: actuators.Forward, Hold: 2 * time.Second},
	{Speed: 0, Dir: actuators.Brake, Hold: time.Second},
	{Speed: 90, Dir: actuators.Reverse, Hold: 2 * time.Second},
	{Speed: 0, Dir: actuators.Brake, Hold: time.Second},
}

// RunMotorDemo loops DemoSequence on the configured DRV8833 until
// interrupted, then brakes the motor.
func RunMotorDemo(cfg *config.Config) error {
	log := logger.With("motor_demo")

	if !cfg.HasMotor() {
		return fmt.Errorf("%w: MOTOR_IN1_PIN and MOTOR_IN2_PIN are not set", ErrFatalInit)
	}
	if _, err := host.Init(); err != nil {
		return fatalInit("periph host init", err)
	}
	m, err := actuators.OpenMotor(cfg.MotorIN1Pin, cfg.MotorIN2Pin, physic.Frequency(cfg.MotorPWMFreq)*physic.Hertz)
	if err != nil {
		return fatalInit("motor", err)
	}

	ctx, stop := notifyContext()
	defer stop()

	err = runMotorDemo(ctx, m, DemoSequence, nil, log)
	if serr := m.Stop(); serr != nil {
		log.Error().Err(serr).Msg("motor stop failed")
	}
	log.Info().Msg("motor stopped")
	return err
}

func runMotorDemo(ctx context.Context, m *actuators.Motor, seq []MotorStep, clock sched.Clock, log zerolog.Logger) error {
	if len(seq) == 0 {
		return errors.New("motor demo: empty sequence")
	}

	var driveErr error
	s := sched.New(clock, log)
	s.Go("motor", func(t *sched.Task) error {
		start := t.Now()
		for {
			for _, step := range seq {
				if driveErr = m.Drive(step.Speed, step.Dir); driveErr != nil {
					return driveErr
				}
				log.Info().
					Int("speed", step.Speed).
					Stringer("dir", step.Dir).
					Dur("at", t.Now().Sub(start)).
					Msg("motor")
				if err := t.Sleep(step.Hold); err != nil {
					return err
				}
			}
		}
	})

	if err := s.Run(ctx); err != nil {
		return err
	}
	return driveErr
}
