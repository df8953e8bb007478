// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package actuators drives the output lines owned by the fusion board: the
// status indicator and the DRV8833 motor bridge.
package actuators

import (
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Indicator is a status LED on one GPIO line. It owns the line exclusively.
type Indicator struct {
	pin   gpio.PinOut
	level gpio.Level
	log   zerolog.Logger
}

// NewIndicator drives pin low and returns the indicator.
func NewIndicator(pin gpio.PinOut, log zerolog.Logger) (*Indicator, error) {
	if pin == nil {
		return nil, fmt.Errorf("indicator: no pin")
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("indicator %s: drive low: %w", pin.Name(), err)
	}
	return &Indicator{pin: pin, level: gpio.Low, log: log}, nil
}

// OpenIndicator looks the pin up by name (e.g. "GPIO25" or "25").
func OpenIndicator(name string, log zerolog.Logger) (*Indicator, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("indicator pin %q not found", name)
	}
	return NewIndicator(p, log)
}

// Accept sets the line to on. Write failures are logged, not returned.
func (i *Indicator) Accept(on bool) {
	l := gpio.Level(on)
	if err := i.pin.Out(l); err != nil {
		i.log.Warn().Str("pin", i.pin.Name()).Err(err).Msg("indicator write failed")
		return
	}
	i.level = l
}

// Toggle flips the line.
func (i *Indicator) Toggle() {
	i.Accept(!bool(i.level))
}

// On reports the last level written successfully.
func (i *Indicator) On() bool { return bool(i.level) }

// Off drives the line low. It is the safe state used at shutdown.
func (i *Indicator) Off() error {
	if err := i.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("indicator %s: drive low: %w", i.pin.Name(), err)
	}
	i.level = gpio.Low
	return nil
}
