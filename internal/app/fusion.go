// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/accel_fusion/internal/actuators"
	"github.com/relabs-tech/accel_fusion/internal/config"
	"github.com/relabs-tech/accel_fusion/internal/fusion"
	"github.com/relabs-tech/accel_fusion/internal/imu"
	"github.com/relabs-tech/accel_fusion/internal/logger"
	"github.com/relabs-tech/accel_fusion/internal/sched"
	"github.com/relabs-tech/accel_fusion/internal/sinks"
)

// Loop is the scheduled part of the fusion daemon: one periodic fusion task
// and one periodic indicator task sharing a single scheduler.
type Loop struct {
	Engine            *fusion.Engine
	FusionInterval    time.Duration
	Indicator         *actuators.Indicator // optional
	IndicatorInterval time.Duration
}

// Register adds the loop's tasks to s. Fusion registers first so it wins
// ties with the indicator.
func (l *Loop) Register(s *sched.Scheduler) {
	s.Every("fusion", l.FusionInterval, l.Engine.Cycle)

	if l.Indicator != nil {
		s.Every("indicator", l.IndicatorInterval, func(*sched.Task) error {
			l.Indicator.Toggle()
			return nil
		})
	}
}

// notifyContext is cancelled by SIGINT or SIGTERM.
func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// RunFusion brings up the hardware, runs the fusion loop until interrupted
// and leaves every output in its safe state.
func RunFusion(cfg *config.Config) error {
	log := logger.With("fusion")

	hw, err := BringUp(cfg, log)
	if err != nil {
		return err
	}
	defer hw.Close()

	out := sinks.Fanout[imu.FusedVector]{sinks.NewLog(log)}
	if hw.Display != nil {
		out = append(out, hw.Display)
	}
	if hw.MQTT != nil {
		out = append(out, sinks.NewMQTT(hw.MQTT, cfg.TopicFused, logger.With("mqtt")))
	}

	loop := &Loop{
		Engine:            fusion.NewEngine(hw.Internal, hw.External, out, log),
		FusionInterval:    cfg.FusionInterval,
		Indicator:         hw.Indicator,
		IndicatorInterval: cfg.IndicatorInterval,
	}

	ctx, stop := notifyContext()
	defer stop()

	err = runLoop(ctx, loop, nil, logger.With("sched"))
	hw.SafeState()

	st := loop.Engine.Stats()
	ev := log.Info().
		Uint64("cycles", st.Cycles).
		Uint64("fused", st.Fused).
		Uint64("skipped", st.Skipped)
	if v, ok := loop.Engine.Last(); ok {
		ev = ev.Stringer("last", v)
	}
	ev.Msg("fusion stopped")
	return err
}

// runLoop runs loop until ctx is done. On return every task has unwound.
func runLoop(ctx context.Context, loop *Loop, clock sched.Clock, log zerolog.Logger) error {
	s := sched.New(clock, log)
	loop.Register(s)

	log.Info().
		Dur("fusion_interval", loop.FusionInterval).
		Dur("indicator_interval", loop.IndicatorInterval).
		Bool("indicator", loop.Indicator != nil).
		Msg("starting fusion loop")
	return s.Run(ctx)
}
