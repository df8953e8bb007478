// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/accel_fusion/internal/imu"
)

var (
	// ErrUnavailable is returned when the sensor handle was never established.
	ErrUnavailable = errors.New("sensor unavailable")
	// ErrTransportFault is returned when a bus transaction fails. No partial
	// data accompanies it.
	ErrTransportFault = errors.New("sensor transport fault")
)

// Capability is the read variant an adapter was built with. It is fixed at
// construction and selects the units tag of every sample.
type Capability int

const (
	// Raw devices report signed integer counts.
	Raw Capability = iota
	// Scaled devices report floating point g-force.
	Scaled
)

func (c Capability) String() string {
	if c == Scaled {
		return "scaled"
	}
	return "raw"
}

// ScaledReader is a device that reports acceleration in g.
type ScaledReader interface {
	ReadScaled() (x, y, z float64, err error)
}

// RawReader is a device that reports acceleration as register counts.
type RawReader interface {
	ReadCounts() (x, y, z int16, err error)
}

// Adapter exposes one physical accelerometer behind a uniform read.
// The adapter owns its device handle; nothing else may issue transactions on it.
type Adapter struct {
	name       string
	capability Capability
	scaled     ScaledReader
	raw        RawReader
}

// NewScaledAdapter wraps a device reporting g-force. A nil dev yields an
// adapter whose reads return ErrUnavailable.
func NewScaledAdapter(name string, dev ScaledReader) *Adapter {
	return &Adapter{name: name, capability: Scaled, scaled: dev}
}

// NewRawAdapter wraps a device reporting raw counts. A nil dev yields an
// adapter whose reads return ErrUnavailable.
func NewRawAdapter(name string, dev RawReader) *Adapter {
	return &Adapter{name: name, capability: Raw, raw: dev}
}

// Name returns the source name used in samples and errors.
func (a *Adapter) Name() string { return a.name }

// Capability returns the read variant chosen at construction.
func (a *Adapter) Capability() Capability { return a.capability }

// Available reports whether the adapter holds a device handle.
func (a *Adapter) Available() bool {
	if a.capability == Scaled {
		return a.scaled != nil
	}
	return a.raw != nil
}

// Read issues exactly one read on the underlying device. It never retries.
func (a *Adapter) Read() (imu.AccelSample, error) {
	if !a.Available() {
		return imu.AccelSample{}, fmt.Errorf("%s sensor: %w", a.name, ErrUnavailable)
	}

	if a.capability == Scaled {
		x, y, z, err := a.scaled.ReadScaled()
		if err != nil {
			return imu.AccelSample{}, a.fault(err)
		}
		return imu.AccelSample{Source: a.name, X: x, Y: y, Z: z, Units: imu.GForce}, nil
	}

	x, y, z, err := a.raw.ReadCounts()
	if err != nil {
		return imu.AccelSample{}, a.fault(err)
	}
	return imu.AccelSample{
		Source: a.name,
		X:      float64(x),
		Y:      float64(y),
		Z:      float64(z),
		Units:  imu.RawCounts,
	}, nil
}

func (a *Adapter) fault(err error) error {
	if errors.Is(err, ErrTransportFault) {
		return fmt.Errorf("%s sensor: %w", a.name, err)
	}
	return fmt.Errorf("%s sensor: %w: %w", a.name, ErrTransportFault, err)
}
