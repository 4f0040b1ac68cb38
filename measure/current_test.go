// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package measure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanolab/samplectl/param"
)

func TestNewCurrent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	volts := manual(t, "dmm volts", 0.5)

	_, err := NewCurrent(volts, 0, Picoamps)
	assert.ErrorIs(err, ErrInvalidGain)

	c, err := NewCurrent(volts, 1e6, Picoamps)
	require.NoError(err)

	// 0.5 V through 1e6 V/A is 0.5 µA, displayed in pA.
	got, err := c.Get()
	require.NoError(err)
	assert.InDelta(5e5, got, 1e-6)
}

func TestCurrentGainMutation(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	volts := manual(t, "dmm volts", 1.0)
	c, err := NewCurrent(volts, 1e6, Amps)
	require.NoError(err)

	assert.Equal(1e6, c.Gain())

	require.NoError(c.SetGain(1e7))
	got, err := c.Get()
	require.NoError(err)
	assert.InDelta(1e-7, got, 1e-18)

	assert.ErrorIs(c.SetGain(0), ErrInvalidGain)
	assert.Equal(1e7, c.Gain())
}

func TestCurrentBias(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	ch := param.NewManual("source ch40", "V")
	bias := CurrentBias{
		Channel:        ch,
		BiasResistance: 10e6,
		Scale:          Nanoamps,
	}

	// Sourcing 2 nA through 10 MΩ needs 20 mV on the channel.
	require.NoError(bias.Set(2.0))
	raw, err := ch.Get()
	require.NoError(err)
	assert.InDelta(0.02, raw, 1e-12)

	got, err := bias.Get()
	require.NoError(err)
	assert.InDelta(2.0, got, 1e-9)

	assert.Equal("source ch40 bias current", bias.Name())

	broken := CurrentBias{Channel: ch}
	_, err = broken.Get()
	assert.ErrorIs(err, ErrInvalidGain)
	assert.ErrorIs(broken.Set(1.0), ErrInvalidGain)
}
