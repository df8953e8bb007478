// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fusion combines the internal and external accelerometer samples
// into one normalized vector per cycle.
package fusion

import (
	"math"

	"github.com/relabs-tech/accel_fusion/internal/imu"
)

// Full-scale divisors mapping native units into [-1, 1].
const (
	GForceFullScale    = 2.0  // ±2g range
	RawCountsFullScale = 32.0 // ~16 counts per g
	ExternalFullScale  = 2.0  // external source always reports g
)

// Fuse normalizes both samples, averages them per axis and clamps the result
// to [-1, 1]. It returns false when either sample is missing; there is no
// partial fusion. Fuse is pure.
func Fuse(internal, external *imu.AccelSample) (imu.FusedVector, bool) {
	if internal == nil || external == nil {
		return imu.FusedVector{}, false
	}

	d := divisor(internal.Units)
	ix, iy, iz := internal.X/d, internal.Y/d, internal.Z/d
	ex, ey, ez := external.X/ExternalFullScale, external.Y/ExternalFullScale, external.Z/ExternalFullScale

	return imu.FusedVector{
		X: clamp((ix + ex) / 2.0),
		Y: clamp((iy + ey) / 2.0),
		Z: clamp((iz + ez) / 2.0),
	}, true
}

func divisor(u imu.Units) float64 {
	if u == imu.RawCounts {
		return RawCountsFullScale
	}
	return GForceFullScale
}

// clamp maps v into [-1, 1]. NaN, from a NaN axis or opposing infinities,
// maps to the upper bound.
func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 1.0
	}
	return math.Max(-1.0, math.Min(1.0, v))
}
