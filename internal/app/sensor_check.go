// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/accel_fusion/internal/config"
	"github.com/relabs-tech/accel_fusion/internal/logger"
	"github.com/relabs-tech/accel_fusion/internal/sched"
	"github.com/relabs-tech/accel_fusion/internal/sensors"
)

const sensorCheckInterval = 500 * time.Millisecond

// RunSensorCheck reads each configured accelerometer on its own every 500 ms
// and logs the full reading. With registers set it dumps the MPU-6050
// register map once and returns.
func RunSensorCheck(cfg *config.Config, registers bool) error {
	log := logger.With("sensor_check")

	hw, err := BringUpSensors(cfg, log)
	if err != nil {
		return err
	}
	defer hw.Close()

	if registers {
		regs, err := hw.MPU6050.DumpRegisters()
		if err != nil {
			return fmt.Errorf("register dump: %w", err)
		}
		return writeRegisterTable(os.Stdout, regs)
	}

	ctx, stop := notifyContext()
	defer stop()

	s := sched.New(nil, logger.With("sched"))
	check := &sensorCheck{hw: hw, log: log}
	s.Every("external", sensorCheckInterval, check.external)
	s.Every("internal", sensorCheckInterval, check.internal)
	return s.Run(ctx)
}

type sensorCheck struct {
	hw  *Hardware
	log zerolog.Logger
}

func (c *sensorCheck) external(*sched.Task) error {
	r, err := c.hw.MPU6050.ReadAll()
	if err != nil {
		return err
	}
	c.log.Info().
		Float64("ax", r.Ax).Float64("ay", r.Ay).Float64("az", r.Az).
		Float64("gx", r.Gx).Float64("gy", r.Gy).Float64("gz", r.Gz).
		Float64("temp_c", r.TempC).
		Msg("external MPU-6050")
	return nil
}

func (c *sensorCheck) internal(*sched.Task) error {
	sample, err := c.hw.Internal.Read()
	if err != nil {
		return err
	}

	ev := c.log.Info().
		Float64("x", sample.X).Float64("y", sample.Y).Float64("z", sample.Z).
		Stringer("units", sample.Units)
	if c.hw.MMA7660 != nil {
		if tilt, err := c.hw.MMA7660.ReadTilt(); err == nil {
			ev = ev.Str("tilt", fmt.Sprintf("0x%02X", tilt))
		}
	}
	ev.Msg("internal accelerometer")
	return nil
}

// writeRegisterTable prints one row per register and one indented row per
// documented bit field.
func writeRegisterTable(w io.Writer, regs []sensors.RegisterValue) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDR\tNAME\tVALUE\tBINARY\tDESCRIPTION")
	for _, r := range regs {
		fmt.Fprintf(tw, "0x%02X\t%s\t0x%02X\t%08b\t%s\n", r.Address, r.Name, r.Value, r.Value, r.Description)
		for _, f := range r.BitFields {
			fmt.Fprintf(tw, "\t  [%s] %s\t\t\t%s\n", f.Bits, f.Name, strings.TrimSpace(f.Values))
		}
	}
	return tw.Flush()
}
