// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/relabs-tech/accel_fusion/internal/app"
	"github.com/relabs-tech/accel_fusion/internal/config"
	"github.com/relabs-tech/accel_fusion/internal/logger"
)

func main() {
	fs := pflag.NewFlagSet("motor_demo", pflag.ExitOnError)
	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, false)
	logger.Info().
		Str("in1", cfg.MotorIN1Pin).
		Str("in2", cfg.MotorIN2Pin).
		Msg("starting DRV8833 motor demo, Ctrl+C stops the motor")

	if err := app.RunMotorDemo(cfg); err != nil {
		logger.Fatal().Err(err).Msg("fatal")
	}
}
