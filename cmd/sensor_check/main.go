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
	fs := pflag.NewFlagSet("sensor_check", pflag.ExitOnError)
	registers := fs.Bool("registers", false, "dump the MPU-6050 register map and exit")
	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, false)
	logger.Info().Str("internal", cfg.InternalDevice).Msg("starting sensor check")

	if err := app.RunSensorCheck(cfg, *registers); err != nil {
		logger.Fatal().Err(err).Msg("fatal")
	}
}
