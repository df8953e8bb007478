// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultPath is where the tools look for their KEY=VALUE file.
const DefaultPath = "./fusion_config.txt"

// Internal sensor variants.
const (
	DeviceMPU9250 = "mpu9250" // SPI, scaled g
	DeviceMMA7660 = "mma7660" // I2C, raw counts
	DeviceNone    = "none"
)

// Config holds all application configuration values. It is loaded once in
// main and passed down explicitly.
type Config struct {
	// Internal accelerometer
	InternalDevice    string
	InternalI2CBus    string
	InternalI2CAddr   uint16
	InternalSPIDevice string
	InternalCSPin     string

	// External accelerometer (MPU-6050)
	ExternalI2CBus  string
	ExternalI2CAddr uint16

	// Timing
	FusionInterval    time.Duration
	IndicatorInterval time.Duration

	// Outputs; empty pin names disable the output
	IndicatorPin string
	MotorIN1Pin  string
	MotorIN2Pin  string
	MotorPWMFreq int // Hz

	// MQTT; empty broker disables the MQTT sink
	MQTTBroker   string
	MQTTClientID string
	TopicFused   string

	// Display
	DisplayEnabled bool
	DisplayI2CBus  string

	// Monitor
	MonitorPort int

	LogLevel string
}

// defaults maps every accepted key to its default. Keys are lower case as
// viper normalizes them.
var defaults = map[string]string{
	"internal_device":     DeviceMMA7660,
	"internal_i2c_bus":    "1",
	"internal_i2c_addr":   "0x4C",
	"internal_spi_device": "/dev/spidev0.0",
	"internal_cs_pin":     "8",
	"external_i2c_bus":    "1",
	"external_i2c_addr":   "0x68",
	"fusion_interval":     "200",
	"indicator_pin":       "",
	"indicator_interval":  "500",
	"motor_in1_pin":       "",
	"motor_in2_pin":       "",
	"motor_pwm_freq":      "20000",
	"mqtt_broker":         "",
	"mqtt_client_id":      "accel-fusion",
	"topic_fused":         "fusion/vector",
	"display_enabled":     "false",
	"display_i2c_bus":     "1",
	"monitor_port":        "8080",
	"log_level":           "info",
}

// Parse registers the flags shared by all tools on fs, parses args and loads
// the file named by --config. Callers add their own flags to fs first.
func Parse(fs *pflag.FlagSet, args []string) (*Config, error) {
	path := fs.String("config", DefaultPath, "path to the KEY=VALUE configuration file")
	fs.String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v, err := read(*path)
	if err != nil {
		return nil, err
	}
	if f := fs.Lookup("log-level"); f != nil && f.Changed {
		v.Set("log_level", f.Value.String())
	}
	return decode(v)
}

// Load reads the configuration file and returns a Config struct.
func Load(path string) (*Config, error) {
	v, err := read(path)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

func read(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var unknown []string
	for _, k := range v.AllKeys() {
		if _, ok := defaults[k]; !ok {
			unknown = append(unknown, strings.ToUpper(k))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(unknown, ", "))
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	p := parser{v: v}
	cfg := &Config{
		InternalDevice:    strings.ToLower(p.str("internal_device")),
		InternalI2CBus:    p.str("internal_i2c_bus"),
		InternalI2CAddr:   p.addr("internal_i2c_addr"),
		InternalSPIDevice: p.str("internal_spi_device"),
		InternalCSPin:     p.str("internal_cs_pin"),

		ExternalI2CBus:  p.str("external_i2c_bus"),
		ExternalI2CAddr: p.addr("external_i2c_addr"),

		FusionInterval:    p.millis("fusion_interval"),
		IndicatorInterval: p.millis("indicator_interval"),

		IndicatorPin: p.str("indicator_pin"),
		MotorIN1Pin:  p.str("motor_in1_pin"),
		MotorIN2Pin:  p.str("motor_in2_pin"),
		MotorPWMFreq: p.integer("motor_pwm_freq", 1, 1_000_000),

		MQTTBroker:   p.str("mqtt_broker"),
		MQTTClientID: p.str("mqtt_client_id"),
		TopicFused:   p.str("topic_fused"),

		DisplayEnabled: p.boolean("display_enabled"),
		DisplayI2CBus:  p.str("display_i2c_bus"),

		MonitorPort: p.integer("monitor_port", 1, 65535),

		LogLevel: strings.ToLower(p.str("log_level")),
	}
	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parser converts raw string values and keeps the first error.
type parser struct {
	v   *viper.Viper
	err error
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", strings.ToUpper(key), value, err)
	}
}

func (p *parser) integer(key string, lo, hi int) int {
	s := p.str(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, s, err)
		return 0
	}
	if n < lo || n > hi {
		p.fail(key, s, fmt.Errorf("must be %d-%d", lo, hi))
		return 0
	}
	return n
}

func (p *parser) millis(key string) time.Duration {
	return time.Duration(p.integer(key, 1, 3_600_000)) * time.Millisecond
}

func (p *parser) addr(key string) uint16 {
	s := p.str(key)
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		p.fail(key, s, err)
		return 0
	}
	if n < 0x03 || n > 0x77 {
		p.fail(key, s, errors.New("must be a 7-bit I2C address (0x03-0x77)"))
		return 0
	}
	return uint16(n)
}

func (p *parser) boolean(key string) bool {
	s := p.str(key)
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(key, s, err)
	}
	return b
}

// validate checks cross-field constraints.
func (c *Config) validate() error {
	switch c.InternalDevice {
	case DeviceMPU9250:
		if c.InternalSPIDevice == "" || c.InternalCSPin == "" {
			return fmt.Errorf("INTERNAL_DEVICE=%s requires INTERNAL_SPI_DEVICE and INTERNAL_CS_PIN", c.InternalDevice)
		}
	case DeviceMMA7660, DeviceNone:
	default:
		return fmt.Errorf("INTERNAL_DEVICE must be %s, %s or %s, got %q",
			DeviceMPU9250, DeviceMMA7660, DeviceNone, c.InternalDevice)
	}

	if c.InternalDevice == DeviceMMA7660 &&
		c.InternalI2CBus == c.ExternalI2CBus && c.InternalI2CAddr == c.ExternalI2CAddr {
		return fmt.Errorf("internal and external sensors share I2C address 0x%02X on bus %s",
			c.InternalI2CAddr, c.InternalI2CBus)
	}

	if (c.MotorIN1Pin == "") != (c.MotorIN2Pin == "") {
		return errors.New("MOTOR_IN1_PIN and MOTOR_IN2_PIN must be set together")
	}

	if c.MQTTBroker != "" && c.TopicFused == "" {
		return errors.New("TOPIC_FUSED is required when MQTT_BROKER is set")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}

	return nil
}

// HasMotor reports whether both motor pins are configured.
func (c *Config) HasMotor() bool { return c.MotorIN1Pin != "" }
