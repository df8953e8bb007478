// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"math"

	"github.com/relabs-tech/accel_fusion/internal/imu"
)

// Pose is the tilt of the board derived from the fused gravity vector.
type Pose struct {
	Roll  float64 `json:"roll"`  // deg
	Pitch float64 `json:"pitch"` // deg
}

// Tilt computes roll and pitch from an accelerometer-only estimate:
//
//	roll  = atan2(y, z)
//	pitch = atan2(-x, sqrt(y² + z²))
//
// Only the ratios between axes matter, so the normalized vector works as is.
// Yaw is not observable from gravity alone.
func Tilt(v imu.FusedVector) Pose {
	roll := math.Atan2(v.Y, v.Z)
	pitch := math.Atan2(-v.X, math.Sqrt(v.Y*v.Y+v.Z*v.Z))

	return Pose{
		Roll:  roll * 180.0 / math.Pi,
		Pitch: pitch * 180.0 / math.Pi,
	}
}
