// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "qdac", cfg.Source.Name)
	assert.Equal(t, 48, cfg.Source.Channels)
	assert.True(t, cfg.Outputs.Console)
	assert.Nil(t, cfg.Outputs.MQTT)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
}

func TestLoadConfig(t *testing.T) {
	const doc = `
source:
  name: qdac
  channels: 24
lockin:
  excitation: 10 uV
monitor:
  sample_rate: 2Hz
outputs:
  console: false
  mqtt:
    server: tcp://localhost:1883
    topic: lab/fridge1
http:
  address: :9090
  read_timeout: 15s
`
	path := filepath.Join(t.TempDir(), "station.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Source.Channels)
	assert.InEpsilon(t, 10e-6, float64(cfg.Lockin.Excitation), 1e-9)
	assert.Equal(t, 2*physic.Hertz, cfg.Monitor.SampleRate)
	assert.False(t, cfg.Outputs.Console)
	require.NotNil(t, cfg.Outputs.MQTT)
	assert.Equal(t, "tcp://localhost:1883", cfg.Outputs.MQTT.Server)
	assert.Equal(t, "lab/fridge1", cfg.Outputs.MQTT.Topic)
	assert.Equal(t, ":9090", cfg.HTTP.Address)
}

func TestLoadConfigBadExcitation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lockin:\n  excitation: ten volts\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
