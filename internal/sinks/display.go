// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sinks

import (
	"fmt"
	"image"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/accel_fusion/internal/fusion"
	"github.com/relabs-tech/accel_fusion/internal/imu"
)

// screen is the part of *ssd1306.Dev the display sink draws through.
type screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// Display renders the latest vector and tilt on a 128x64 SSD1306 OLED.
type Display struct {
	dev screen
	log zerolog.Logger
}

// OpenDisplay initializes the OLED on bus and shows the splash screen.
func OpenDisplay(bus i2c.Bus, log zerolog.Logger) (*Display, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	return NewDisplay(dev, log)
}

// NewDisplay wraps an initialized screen and shows the splash screen.
func NewDisplay(dev screen, log zerolog.Logger) (*Display, error) {
	d := &Display{dev: dev, log: log}
	if err := d.render("Accel Fusion", "", "Waiting..."); err != nil {
		return nil, fmt.Errorf("display splash: %w", err)
	}
	return d, nil
}

func (d *Display) Accept(v imu.FusedVector) {
	p := fusion.Tilt(v)
	err := d.render(
		fmt.Sprintf("X:%6.3f", v.X),
		fmt.Sprintf("Y:%6.3f", v.Y),
		fmt.Sprintf("Z:%6.3f", v.Z),
		fmt.Sprintf("R:%5.1f P:%5.1f", p.Roll, p.Pitch),
	)
	if err != nil {
		d.log.Warn().Err(err).Msg("display update failed")
	}
}

// Clear blanks the panel and turns it off.
func (d *Display) Clear() error {
	if err := d.dev.Draw(d.dev.Bounds(), blank(d.dev.Bounds()), image.Point{}); err != nil {
		return fmt.Errorf("display clear: %w", err)
	}
	return d.dev.Halt()
}

func (d *Display) render(lines ...string) error {
	img := blank(d.dev.Bounds())

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(line)
	}

	return d.dev.Draw(d.dev.Bounds(), img, image.Point{})
}

func blank(r image.Rectangle) *image1bit.VerticalLSB {
	return image1bit.NewVerticalLSB(image.Rect(0, 0, r.Dx(), r.Dy()))
}
