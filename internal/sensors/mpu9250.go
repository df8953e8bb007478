// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
)

// mpu9250AccelScale converts counts to g at the power-on ±2g range.
const mpu9250AccelScale = 16384.0

// MPU9250 is the SPI-attached internal IMU, read as a scaled source.
type MPU9250 struct {
	imu *mpu9250.MPU9250
}

// NewMPU9250 brings up the MPU9250 on spiDev with chip select csPin.
// periph host must already be initialized.
func NewMPU9250(spiDev, csPin string, log zerolog.Logger) (*MPU9250, error) {
	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("mpu9250: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: initialization: %w", err)
	}

	if res, err := dev.SelfTest(); err != nil {
		log.Warn().Err(err).Msg("mpu9250 self-test failed")
	} else {
		log.Info().
			Float64("accel_dev_x", float64(res.AccelDeviation.X)).
			Float64("accel_dev_y", float64(res.AccelDeviation.Y)).
			Float64("accel_dev_z", float64(res.AccelDeviation.Z)).
			Msg("mpu9250 self-test passed")
	}

	if err := dev.Calibrate(); err != nil {
		log.Warn().Err(err).Msg("mpu9250 calibration failed")
	}

	return &MPU9250{imu: dev}, nil
}

// ReadScaled implements ScaledReader.
func (s *MPU9250) ReadScaled() (x, y, z float64, err error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("mpu9250 accel X: %w: %w", ErrTransportFault, err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("mpu9250 accel Y: %w: %w", ErrTransportFault, err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("mpu9250 accel Z: %w: %w", ErrTransportFault, err)
	}
	return float64(ax) / mpu9250AccelScale, float64(ay) / mpu9250AccelScale, float64(az) / mpu9250AccelScale, nil
}
