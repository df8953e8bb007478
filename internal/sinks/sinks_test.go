// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sinks

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/accel_fusion/internal/imu"
)

type doneToken struct{ err error }

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }

func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	f.msgs = append(f.msgs, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return &doneToken{err: f.err}
}

func TestMQTTPublishesPayload(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMQTT(pub, "fusion/vector", zerolog.Nop())
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return stamp }

	m.Accept(imu.FusedVector{X: 0.25, Y: 0, Z: 0.5})

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "fusion/vector", msg.topic)
	assert.True(t, msg.retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.InDelta(t, 0.25, got["x"], 1e-12)
	assert.InDelta(t, 0.5, got["z"], 1e-12)
	assert.Contains(t, got, "roll")
	assert.Contains(t, got, "pitch")
	assert.Equal(t, "2026-03-01T12:00:00Z", got["time"])
}

func TestMQTTPublishFailureDoesNotPanic(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	m := NewMQTT(pub, "fusion/vector", zerolog.Nop())

	assert.NotPanics(t, func() { m.Accept(imu.FusedVector{}) })
	assert.Len(t, pub.msgs, 1)
}

type fakeScreen struct {
	frames []*image1bit.VerticalLSB
	halted bool
	err    error
}

func (s *fakeScreen) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 64) }

func (s *fakeScreen) Halt() error {
	s.halted = true
	return nil
}

func (s *fakeScreen) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, src.(*image1bit.VerticalLSB))
	return nil
}

func lit(img *image1bit.VerticalLSB) int {
	n := 0
	for _, b := range img.Pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestDisplayRendersVector(t *testing.T) {
	scr := &fakeScreen{}
	d, err := NewDisplay(scr, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, scr.frames, 1, "splash")

	d.Accept(imu.FusedVector{X: 0.1, Y: -0.2, Z: 0.9})
	require.Len(t, scr.frames, 2)
	assert.Positive(t, lit(scr.frames[1]))
	assert.NotEqual(t, scr.frames[0].Pix, scr.frames[1].Pix)

	require.NoError(t, d.Clear())
	require.Len(t, scr.frames, 3)
	assert.Zero(t, lit(scr.frames[2]))
	assert.True(t, scr.halted)
}

func TestDisplaySplashFailure(t *testing.T) {
	_, err := NewDisplay(&fakeScreen{err: errors.New("i2c nack")}, zerolog.Nop())
	assert.Error(t, err)
}

func TestFanoutAndLog(t *testing.T) {
	var buf bytes.Buffer
	logSink := NewLog(zerolog.New(&buf))

	var seen []imu.FusedVector
	f := Fanout[imu.FusedVector]{
		logSink,
		Func[imu.FusedVector](func(v imu.FusedVector) { seen = append(seen, v) }),
	}

	v := imu.FusedVector{X: 1, Y: -1, Z: 0}
	f.Accept(v)

	assert.Equal(t, []imu.FusedVector{v}, seen)
	assert.Contains(t, buf.String(), `"x":1`)
	assert.Contains(t, buf.String(), `"level":"info"`)
}
