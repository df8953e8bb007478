// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "fmt"

// Units tags the native reporting mode of an accelerometer triple.
type Units int

const (
	// RawCounts are signed integer counts straight from the device registers.
	RawCounts Units = iota
	// GForce values are already scaled to g by the device or its driver.
	GForce
)

func (u Units) String() string {
	switch u {
	case RawCounts:
		return "raw"
	case GForce:
		return "g-force"
	default:
		return fmt.Sprintf("Units(%d)", int(u))
	}
}

// MarshalText makes Units readable in JSON payloads and log fields.
func (u Units) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// AccelSample is a single accelerometer triple as produced by one sensor read.
type AccelSample struct {
	Source string `json:"source"` // "internal" or "external"

	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	Units Units `json:"units"`
}

// FusedVector is the normalized, averaged and clamped output of one fusion
// cycle. Every component lies in [-1, 1].
type FusedVector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v FusedVector) String() string {
	return fmt.Sprintf("X=%6.3f | Y=%6.3f | Z=%6.3f", v.X, v.Y, v.Z)
}

// MPUReading is the full scaled block read from an MPU-6050 in one burst.
type MPUReading struct {
	Ax float64 `json:"ax"` // g
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	TempC float64 `json:"temp_c"`

	Gx float64 `json:"gx"` // deg/s
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`
}
