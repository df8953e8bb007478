// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/accel_fusion/internal/actuators"
	"github.com/relabs-tech/accel_fusion/internal/config"
	"github.com/relabs-tech/accel_fusion/internal/sensors"
	"github.com/relabs-tech/accel_fusion/internal/sinks"
)

// ErrFatalInit marks a bring-up failure. The scheduler is never started
// after it.
var ErrFatalInit = errors.New("fatal init")

func fatalInit(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrFatalInit, what, err)
}

// Hardware owns every handle opened during bring-up. Each handle has exactly
// one user; nothing here is global.
type Hardware struct {
	Internal *sensors.Adapter
	External *sensors.Adapter
	MPU6050  *sensors.MPU6050
	MMA7660  *sensors.MMA7660

	Indicator *actuators.Indicator // nil when INDICATOR_PIN is empty
	Motor     *actuators.Motor     // nil when no motor pins
	Display   *sinks.Display       // nil unless DISPLAY_ENABLED
	MQTT      mqtt.Client          // nil when MQTT_BROKER is empty

	buses map[string]i2c.BusCloser
	log   zerolog.Logger
}

// BringUp initializes periph, opens buses and brings up every configured
// device and output. Any failure wraps ErrFatalInit.
func BringUp(cfg *config.Config, log zerolog.Logger) (*Hardware, error) {
	hw, err := BringUpSensors(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := hw.bringUpOutputs(cfg); err != nil {
		hw.SafeState()
		hw.Close()
		return nil, err
	}
	return hw, nil
}

// BringUpSensors brings up only the two accelerometers. The external
// MPU-6050 is mandatory; an internal device set to "none" yields an adapter
// whose reads are unavailable.
func BringUpSensors(cfg *config.Config, log zerolog.Logger) (*Hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fatalInit("periph host init", err)
	}

	hw := &Hardware{buses: map[string]i2c.BusCloser{}, log: log}
	if err := hw.bringUpSensors(cfg); err != nil {
		hw.Close()
		return nil, err
	}
	return hw, nil
}

func (hw *Hardware) bus(name string) (i2c.Bus, error) {
	if b, ok := hw.buses[name]; ok {
		return b, nil
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fatalInit(fmt.Sprintf("open I2C bus %q", name), err)
	}
	hw.buses[name] = b
	return b, nil
}

// openExternal probes, wakes and identifies the external MPU-6050. A part
// answering with an unexpected WHO_AM_I is accepted with a warning.
func openExternal(bus i2c.Bus, addr uint16, log zerolog.Logger) (*sensors.MPU6050, error) {
	if !sensors.Probe(bus, addr) {
		return nil, fmt.Errorf("%w: MPU-6050 not found at 0x%02X", ErrFatalInit, addr)
	}
	mpu, err := sensors.NewMPU6050(bus, addr)
	if err != nil {
		return nil, fatalInit("external sensor", err)
	}
	id, err := mpu.WhoAmI()
	if err != nil {
		return nil, fatalInit("external sensor", err)
	}
	if id != sensors.MPU6050WhoAmI {
		log.Warn().Str("who_am_i", fmt.Sprintf("0x%02X", id)).Msg("unexpected MPU-6050 identity")
	}
	return mpu, nil
}

func (hw *Hardware) bringUpSensors(cfg *config.Config) error {
	extBus, err := hw.bus(cfg.ExternalI2CBus)
	if err != nil {
		return err
	}
	mpu, err := openExternal(extBus, cfg.ExternalI2CAddr, hw.log)
	if err != nil {
		return fmt.Errorf("%w (I2C bus %q)", err, cfg.ExternalI2CBus)
	}
	hw.MPU6050 = mpu
	hw.External = sensors.NewScaledAdapter("external", mpu)
	hw.log.Info().Str("bus", cfg.ExternalI2CBus).Uint16("addr", cfg.ExternalI2CAddr).Msg("external MPU-6050 initialized")

	switch cfg.InternalDevice {
	case config.DeviceMMA7660:
		b, err := hw.bus(cfg.InternalI2CBus)
		if err != nil {
			return err
		}
		mma, err := sensors.NewMMA7660(b, cfg.InternalI2CAddr)
		if err != nil {
			return fatalInit("internal sensor", err)
		}
		hw.MMA7660 = mma
		hw.Internal = sensors.NewRawAdapter("internal", mma)

	case config.DeviceMPU9250:
		dev, err := sensors.NewMPU9250(cfg.InternalSPIDevice, cfg.InternalCSPin, hw.log)
		if err != nil {
			return fatalInit("internal sensor", err)
		}
		hw.Internal = sensors.NewScaledAdapter("internal", dev)

	default:
		hw.Internal = sensors.NewRawAdapter("internal", nil)
		hw.log.Warn().Msg("no internal sensor configured, fusion will not produce vectors")
		return nil
	}
	hw.log.Info().
		Str("device", cfg.InternalDevice).
		Stringer("capability", hw.Internal.Capability()).
		Msg("internal accelerometer initialized")
	return nil
}

func (hw *Hardware) bringUpOutputs(cfg *config.Config) error {
	if cfg.IndicatorPin != "" {
		ind, err := actuators.OpenIndicator(cfg.IndicatorPin, hw.log)
		if err != nil {
			return fatalInit("indicator", err)
		}
		hw.Indicator = ind
	}

	if cfg.HasMotor() {
		m, err := actuators.OpenMotor(cfg.MotorIN1Pin, cfg.MotorIN2Pin, physic.Frequency(cfg.MotorPWMFreq)*physic.Hertz)
		if err != nil {
			return fatalInit("motor", err)
		}
		hw.Motor = m
	}

	if cfg.DisplayEnabled {
		b, err := hw.bus(cfg.DisplayI2CBus)
		if err != nil {
			return err
		}
		d, err := sinks.OpenDisplay(b, hw.log)
		if err != nil {
			return fatalInit("display", err)
		}
		hw.Display = d
	}

	if cfg.MQTTBroker != "" {
		c, err := sinks.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			return fatalInit("MQTT sink", err)
		}
		hw.MQTT = c
		hw.log.Info().Str("broker", cfg.MQTTBroker).Msg("connected to MQTT broker")
	}
	return nil
}

// SafeState drives every output to rest: indicator off, motor braked,
// display blanked, MQTT disconnected. Errors are logged; every step runs.
func (hw *Hardware) SafeState() {
	if hw.Indicator != nil {
		if err := hw.Indicator.Off(); err != nil {
			hw.log.Error().Err(err).Msg("indicator off failed")
		}
	}
	if hw.Motor != nil {
		if err := hw.Motor.Stop(); err != nil {
			hw.log.Error().Err(err).Msg("motor stop failed")
		}
	}
	if hw.Display != nil {
		if err := hw.Display.Clear(); err != nil {
			hw.log.Error().Err(err).Msg("display clear failed")
		}
	}
	if hw.MQTT != nil {
		hw.MQTT.Disconnect(250)
	}
}

// Close releases the buses.
func (hw *Hardware) Close() {
	for name, b := range hw.buses {
		if err := b.Close(); err != nil {
			hw.log.Warn().Str("bus", name).Err(err).Msg("I2C bus close failed")
		}
	}
	hw.buses = nil
}
