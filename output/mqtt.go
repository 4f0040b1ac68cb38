// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig configures the MQTT sample publisher.
type MQTTConfig struct {
	// Server is the broker address, e.g. "tcp://localhost:1883".
	Server   string `mapstructure:"server"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`

	// Topic is the base topic; each sample is published under
	// <topic>/<sample name> with spaces replaced by underscores.
	Topic string `mapstructure:"topic"`
}

// MQTT publishes each sample as a JSON payload to a per-sample topic.
type MQTT struct {
	client mqtt.Client
	topic  string
}

func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "samplectl"
	}
	return &MQTT{client: client, topic: topic}, nil
}

func (m *MQTT) Publish(samples []Sample) error {
	for _, s := range samples {
		payload, err := json.Marshal(s)
		if err != nil {
			return err
		}

		topic := m.topic + "/" + strings.ReplaceAll(s.Name, " ", "_")
		token := m.client.Publish(topic, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("mqtt publish: %w", token.Error())
		}
	}
	return nil
}

func (m *MQTT) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}
