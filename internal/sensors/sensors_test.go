// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/accel_fusion/internal/imu"
)

var errBus = errors.New("i2c: remote I/O error")

// faultyBus fails every transaction.
type faultyBus struct{}

func (faultyBus) String() string                    { return "faulty" }
func (faultyBus) Tx(_ uint16, _, _ []byte) error    { return errBus }
func (faultyBus) SetSpeed(_ physic.Frequency) error { return nil }

type stubScaled struct {
	x, y, z float64
	err     error
	calls   int
}

func (s *stubScaled) ReadScaled() (float64, float64, float64, error) {
	s.calls++
	return s.x, s.y, s.z, s.err
}

type stubRaw struct {
	x, y, z int16
	err     error
}

func (s *stubRaw) ReadCounts() (int16, int16, int16, error) {
	return s.x, s.y, s.z, s.err
}

func TestMain(m *testing.M) {
	mpuWakeDelay = 0
	m.Run()
}

func TestAdapterAbsentHandle(t *testing.T) {
	a := NewScaledAdapter("external", nil)
	assert.False(t, a.Available())

	_, err := a.Read()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrTransportFault)

	r := NewRawAdapter("internal", nil)
	_, err = r.Read()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAdapterUnitsFollowCapability(t *testing.T) {
	scaled := NewScaledAdapter("internal", &stubScaled{x: 0.5, y: -0.25, z: 1})
	s, err := scaled.Read()
	require.NoError(t, err)
	assert.Equal(t, imu.AccelSample{Source: "internal", X: 0.5, Y: -0.25, Z: 1, Units: imu.GForce}, s)
	assert.Equal(t, Scaled, scaled.Capability())

	raw := NewRawAdapter("internal", &stubRaw{x: 1, y: -2, z: 21})
	s, err = raw.Read()
	require.NoError(t, err)
	assert.Equal(t, imu.AccelSample{Source: "internal", X: 1, Y: -2, Z: 21, Units: imu.RawCounts}, s)
	assert.Equal(t, Raw, raw.Capability())
}

func TestAdapterSurfacesTransportFault(t *testing.T) {
	dev := &stubScaled{err: errBus}
	a := NewScaledAdapter("external", dev)

	s, err := a.Read()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportFault)
	assert.ErrorIs(t, err, errBus)
	assert.Equal(t, imu.AccelSample{}, s)
	assert.Equal(t, 1, dev.calls, "adapter must not retry")
}

func TestMPU6050ReadAll(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: MPU6050Addr, W: []byte{0x6B, 0x00}},
			{Addr: MPU6050Addr, W: []byte{0x3B}, R: []byte{
				0x40, 0x00, // ax = 16384 -> 1g
				0xC0, 0x00, // ay = -16384 -> -1g
				0x20, 0x00, // az = 8192 -> 0.5g
				0x00, 0x00, // temp raw 0 -> 36.53
				0x00, 0x83, // gx = 131 -> 1 deg/s
				0xFF, 0x7D, // gy = -131
				0x00, 0x00,
			}},
		},
	}

	d, err := NewMPU6050(bus, MPU6050Addr)
	require.NoError(t, err)

	r, err := d.ReadAll()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r.Ax, 1e-9)
	assert.InDelta(t, -1.0, r.Ay, 1e-9)
	assert.InDelta(t, 0.5, r.Az, 1e-9)
	assert.InDelta(t, 36.53, r.TempC, 1e-9)
	assert.InDelta(t, 1.0, r.Gx, 1e-9)
	assert.InDelta(t, -1.0, r.Gy, 1e-9)
	assert.InDelta(t, 0.0, r.Gz, 1e-9)
	require.NoError(t, bus.Close())
}

func TestMPU6050FaultIsNotZero(t *testing.T) {
	d := &MPU6050{}
	d.dev = newDev(faultyBus{}, MPU6050Addr)

	x, y, z, err := d.ReadScaled()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportFault)
	assert.Zero(t, x+y+z)

	a := NewScaledAdapter("external", d)
	_, err = a.Read()
	assert.ErrorIs(t, err, ErrTransportFault)
	assert.ErrorIs(t, err, errBus)
}

func TestMMA7660ReadCounts(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: MMA7660Addr, W: []byte{0x07, 0x01}},
			{Addr: MMA7660Addr, W: []byte{0x00}, R: []byte{0x01, 0x3F, 0x15}},
			{Addr: MMA7660Addr, W: []byte{0x00}, R: []byte{0x41, 0x00, 0x00}},
		},
	}

	d, err := NewMMA7660(bus, MMA7660Addr)
	require.NoError(t, err)

	x, y, z, err := d.ReadCounts()
	require.NoError(t, err)
	assert.Equal(t, int16(1), x)
	assert.Equal(t, int16(-1), y)
	assert.Equal(t, int16(21), z)

	_, _, _, err = d.ReadCounts()
	assert.ErrorIs(t, err, ErrTransportFault)
	require.NoError(t, bus.Close())
}

func TestSixBit(t *testing.T) {
	assert.Equal(t, int16(31), sixBit(0x1F))
	assert.Equal(t, int16(-32), sixBit(0x20))
	assert.Equal(t, int16(0), sixBit(0x00))
	assert.Equal(t, int16(-1), sixBit(0xBF), "high bits are ignored")
}

func TestDumpRegisters(t *testing.T) {
	regs := MPU6050Registers()
	ops := make([]i2ctest.IO, 0, len(regs))
	for _, r := range regs {
		ops = append(ops, i2ctest.IO{Addr: MPU6050Addr, W: []byte{r.Address}, R: []byte{r.Address}})
	}
	bus := &i2ctest.Playback{Ops: ops}

	d := &MPU6050{dev: newDev(bus, MPU6050Addr)}
	vals, err := d.DumpRegisters()
	require.NoError(t, err)
	require.Len(t, vals, len(regs))
	for _, v := range vals {
		assert.Equal(t, v.Address, v.Value)
	}
}
