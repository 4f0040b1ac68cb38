// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVoltageDivider(t *testing.T) {
	tests := []struct {
		description string
		ratio       float64
		expectedErr error
	}{
		{
			description: "basic divider",
			ratio:       8.0,
		}, {
			description: "unity ratio",
			ratio:       1.0,
		}, {
			description: "zero ratio rejected",
			ratio:       0.0,
			expectedErr: ErrInvalidRatio,
		}, {
			description: "negative ratio rejected",
			ratio:       -2.0,
			expectedErr: ErrInvalidRatio,
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)

			d, err := NewVoltageDivider(NewManual("amplitude", "V"), tc.ratio)

			if tc.expectedErr != nil {
				assert.ErrorIs(err, tc.expectedErr)
				assert.Nil(d)
				return
			}

			assert.NoError(err)
			assert.Equal(tc.ratio, d.Ratio())
		})
	}
}

func TestVoltageDividerAlgebra(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	amplitude := NewManual("amplitude", "V")
	d, err := NewVoltageDivider(amplitude, 100.0)
	require.NoError(err)

	// Setting the effective voltage writes the raw equivalent upstream.
	require.NoError(d.Set(0.001))
	raw, err := amplitude.Get()
	require.NoError(err)
	assert.InDelta(0.1, raw, 1e-12)

	// Reading back returns the effective voltage.
	eff, err := d.Get()
	require.NoError(err)
	assert.InDelta(0.001, eff, 1e-12)
}

func TestVoltageDividerRatioMutation(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	amplitude := NewManual("amplitude", "V")
	require.NoError(amplitude.Set(1.0))

	d, err := NewVoltageDivider(amplitude, 10.0)
	require.NoError(err)

	eff, err := d.Get()
	require.NoError(err)
	assert.InDelta(0.1, eff, 1e-12)

	// A changed ratio takes effect on the next Get without rebuilding.
	require.NoError(d.SetRatio(4.0))
	eff, err = d.Get()
	require.NoError(err)
	assert.InDelta(0.25, eff, 1e-12)

	assert.ErrorIs(d.SetRatio(0.0), ErrInvalidRatio)
	assert.Equal(4.0, d.Ratio())
}

func TestVoltageDividerNaming(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	amplitude := NewManual("amplitude", "V")
	d, err := NewVoltageDivider(amplitude, 2.0)
	require.NoError(err)

	assert.Equal("amplitude", d.Name())
	d.SetLabel("topo bias")
	assert.Equal("topo bias", d.Name())

	assert.Same(amplitude, d.Upstream())
}
