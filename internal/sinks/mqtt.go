// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sinks

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/accel_fusion/internal/imu"
)

// publisher is the part of mqtt.Client the sink needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes each vector as a retained JSON message.
type MQTT struct {
	client publisher
	topic  string
	now    func() time.Time
	log    zerolog.Logger
}

// NewMQTT wraps an already connected client.
func NewMQTT(client publisher, topic string, log zerolog.Logger) *MQTT {
	return &MQTT{client: client, topic: topic, now: time.Now, log: log}
}

// ConnectMQTT connects to broker and returns the client.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// Accept does not wait for the broker; the publish outcome is logged when it
// arrives.
func (m *MQTT) Accept(v imu.FusedVector) {
	payload, err := json.Marshal(NewPayload(v, m.now()))
	if err != nil {
		m.log.Error().Err(err).Msg("fused vector marshal failed")
		return
	}

	token := m.client.Publish(m.topic, 0, true, payload)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			m.log.Warn().Str("topic", m.topic).Err(err).Msg("MQTT publish failed")
		}
	}()
}
