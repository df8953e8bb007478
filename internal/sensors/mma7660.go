// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// MMA7660Addr is the fixed I2C address of the MMA7660FC.
const MMA7660Addr uint16 = 0x4C

const (
	mmaRegXOut = 0x00
	mmaRegTilt = 0x03
	mmaRegMode = 0x07

	mmaModeActive = 0x01
	mmaAlert      = 0x40 // register was being updated during the read
)

var errMMAAlert = errors.New("mma7660: alert bit set, sample torn")

// MMA7660 drives the board-level 3-axis accelerometer that reports 6-bit
// signed counts.
type MMA7660 struct {
	dev *i2c.Dev
}

// NewMMA7660 puts the device in active mode.
func NewMMA7660(bus i2c.Bus, addr uint16) (*MMA7660, error) {
	d := &MMA7660{dev: newDev(bus, addr)}
	if err := d.dev.Tx([]byte{mmaRegMode, mmaModeActive}, nil); err != nil {
		return nil, fmt.Errorf("mma7660 0x%02X: set active mode: %w", addr, err)
	}
	return d, nil
}

// ReadCounts implements RawReader with one burst read of XOUT..ZOUT.
func (d *MMA7660) ReadCounts() (x, y, z int16, err error) {
	var r [3]byte
	if err := d.dev.Tx([]byte{mmaRegXOut}, r[:]); err != nil {
		return 0, 0, 0, fmt.Errorf("mma7660: %w: %w", ErrTransportFault, err)
	}
	for _, b := range r {
		if b&mmaAlert != 0 {
			return 0, 0, 0, fmt.Errorf("%w: %w", ErrTransportFault, errMMAAlert)
		}
	}
	return sixBit(r[0]), sixBit(r[1]), sixBit(r[2]), nil
}

// ReadTilt returns the raw TILT register (orientation, tap and shake flags).
func (d *MMA7660) ReadTilt() (byte, error) {
	var r [1]byte
	if err := d.dev.Tx([]byte{mmaRegTilt}, r[:]); err != nil {
		return 0, fmt.Errorf("mma7660: tilt: %w: %w", ErrTransportFault, err)
	}
	return r[0], nil
}

// sixBit sign-extends a 6-bit two's complement value.
func sixBit(b byte) int16 {
	v := int16(b & 0x3F)
	if v >= 32 {
		v -= 64
	}
	return v
}
