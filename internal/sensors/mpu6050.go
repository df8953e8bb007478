// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/binary"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/accel_fusion/internal/imu"
)

// MPU6050Addr is the default I2C address (AD0 low).
const MPU6050Addr uint16 = 0x68

// MPU6050WhoAmI is the identity register value of a genuine part.
const MPU6050WhoAmI byte = 0x68

const (
	mpuRegPwrMgmt1 = 0x6B
	mpuRegAccelXH  = 0x3B
	mpuRegWhoAmI   = 0x75

	// Default ranges after wake: ±2g and ±250°/s.
	mpuAccelScale = 16384.0 // LSB/g
	mpuGyroScale  = 131.0   // LSB/(°/s)

	mpuBlockLen = 14 // accel(6) + temp(2) + gyro(6)
)

// mpuWakeDelay is how long the device needs to stabilize after leaving sleep.
var mpuWakeDelay = 100 * time.Millisecond

// MPU6050 is a minimal register driver for the external IMU.
type MPU6050 struct {
	dev *i2c.Dev
	buf [mpuBlockLen]byte
}

// NewMPU6050 wakes the device at addr on bus. The device starts in sleep mode
// and is woken by clearing PWR_MGMT_1.
func NewMPU6050(bus i2c.Bus, addr uint16) (*MPU6050, error) {
	d := &MPU6050{dev: newDev(bus, addr)}
	if err := d.dev.Tx([]byte{mpuRegPwrMgmt1, 0x00}, nil); err != nil {
		return nil, fmt.Errorf("mpu6050 0x%02X: wake: %w", addr, err)
	}
	time.Sleep(mpuWakeDelay)
	return d, nil
}

// WhoAmI returns the identity register.
func (d *MPU6050) WhoAmI() (byte, error) {
	var r [1]byte
	if err := d.dev.Tx([]byte{mpuRegWhoAmI}, r[:]); err != nil {
		return 0, fmt.Errorf("mpu6050: %w: %w", ErrTransportFault, err)
	}
	return r[0], nil
}

// ReadAll reads accel, temperature and gyro in one 14 byte burst and scales
// them to physical units.
func (d *MPU6050) ReadAll() (imu.MPUReading, error) {
	if err := d.dev.Tx([]byte{mpuRegAccelXH}, d.buf[:]); err != nil {
		return imu.MPUReading{}, fmt.Errorf("mpu6050: %w: %w", ErrTransportFault, err)
	}

	word := func(i int) float64 {
		return float64(int16(binary.BigEndian.Uint16(d.buf[i : i+2])))
	}

	return imu.MPUReading{
		Ax:    word(0) / mpuAccelScale,
		Ay:    word(2) / mpuAccelScale,
		Az:    word(4) / mpuAccelScale,
		TempC: word(6)/340.0 + 36.53,
		Gx:    word(8) / mpuGyroScale,
		Gy:    word(10) / mpuGyroScale,
		Gz:    word(12) / mpuGyroScale,
	}, nil
}

// ReadScaled implements ScaledReader.
func (d *MPU6050) ReadScaled() (x, y, z float64, err error) {
	r, err := d.ReadAll()
	if err != nil {
		return 0, 0, 0, err
	}
	return r.Ax, r.Ay, r.Az, nil
}

// ReadRegister reads a single register, used by the register dump.
func (d *MPU6050) ReadRegister(reg byte) (byte, error) {
	var r [1]byte
	if err := d.dev.Tx([]byte{reg}, r[:]); err != nil {
		return 0, fmt.Errorf("mpu6050 reg 0x%02X: %w: %w", reg, ErrTransportFault, err)
	}
	return r[0], nil
}

// Probe reports whether a device acknowledges at addr.
func Probe(bus i2c.Bus, addr uint16) bool {
	var r [1]byte
	return bus.Tx(addr, nil, r[:]) == nil
}

func newDev(bus i2c.Bus, addr uint16) *i2c.Dev {
	return &i2c.Dev{Bus: bus, Addr: addr}
}
