// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package station

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nanolab/samplectl/instrument"
	"github.com/nanolab/samplectl/param"
	"github.com/nanolab/samplectl/settings"
)

const testSettings = `[Channel Parameters]
topo bias channel = 40
left sensor bias channel = 41
right sensor bias channel = 42
backgate channel = 17
source channel = 12
left cutter = 3
right cutter = 5

[Gain settings]
iv topo gain = 1e7
ac factor topo = 100
dc factor topo = 10.0
dc factor left = 8.0
dc factor right = 8.0

[Channel Labels]
3 = left cutter
5 = right cutter
17 = backgate
40 = topo bias
41 = left sensor bias
42 = right sensor bias

[Ramp speeds]
max rampspeed = 0.5
max rampspeed bias = 0.05
max rampspeed backgate = 0.1

[Channel ranges]
40 = -1.0 1.0
`

func newTestStation(t *testing.T, cfg string) (*Station, *instrument.SimSource, *observer.ObservedLogs) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.config")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	store, err := settings.Open(path)
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	source := instrument.NewSimSource("qdac", 48)

	return New(zap.New(core), store, source), source, logs
}

func TestBiasChannels(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	st, _, _ := newTestStation(t, testSettings)

	chans, err := st.BiasChannels()
	require.NoError(err)
	assert.Equal([]int{40, 41, 42}, chans)
}

func TestUsedChannelsAndLabels(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	st, _, _ := newTestStation(t, testSettings)

	used, err := st.UsedChannels()
	require.NoError(err)
	assert.Equal([]int{3, 5, 17, 40, 41, 42}, used)

	labels, err := st.ChannelLabels()
	require.NoError(err)
	assert.Equal("topo bias", labels[40])
	assert.Equal("backgate", labels[17])
}

func TestSlopes(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	st, _, _ := newTestStation(t, testSettings)

	slopes, err := st.Slopes()
	require.NoError(err)

	assert.Equal(0.5, slopes[3])
	assert.Equal(0.5, slopes[5])
	assert.Equal(0.1, slopes[17])
	assert.Equal(0.05, slopes[40])
	assert.Equal(0.05, slopes[41])
	assert.Equal(0.05, slopes[42])
}

func TestChannels(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	st, source, _ := newTestStation(t, testSettings)

	channels, err := st.Channels()
	require.NoError(err)
	require.Len(channels, 6)

	// Bias channels are divider-wrapped and labelled.
	topo, ok := channels[40].(*param.VoltageDivider)
	require.True(ok)
	assert.Equal(10.0, topo.Ratio())
	assert.Equal("topo bias", topo.Name())

	// Setting the divider drives the raw channel.
	require.NoError(topo.Set(0.001))
	raw, err := source.LastKnown(40)
	require.NoError(err)
	assert.InDelta(0.01, raw, 1e-12)

	// Plain channels stay raw.
	_, isDivider := channels[3].(*param.VoltageDivider)
	assert.False(isDivider)
}

func TestNamedChannel(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	st, _, _ := newTestStation(t, testSettings)

	p, err := st.NamedChannel("left cutter")
	require.NoError(err)
	assert.Equal("qdac ch03", p.Name())

	_, err = st.NamedChannel("no such assignment")
	assert.ErrorIs(err, settings.ErrUnknownKey)
}

func TestSetAll(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	st, source, _ := newTestStation(t, testSettings)

	require.NoError(st.SetAll(0.2, false))
	for _, ch := range []int{3, 5, 17, 40, 41, 42} {
		v, err := source.LastKnown(ch)
		require.NoError(err)
		assert.Equal(0.2, v, "channel %d", ch)
	}

	// includeBias drives the topo divider in at-sample volts, so the raw
	// channel lands at value * ratio.
	require.NoError(st.SetAll(0.01, true))
	raw, err := source.LastKnown(40)
	require.NoError(err)
	assert.InDelta(0.1, raw, 1e-12)
}

func TestCheckUnused(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	st, source, logs := newTestStation(t, testSettings)

	// Channel 7 is unlabelled and left away from zero; channel 40 is
	// labelled and must not be reported.
	ch7, err := source.Channel(7)
	require.NoError(err)
	require.NoError(ch7.Set(-0.3))
	ch40, err := source.Channel(40)
	require.NoError(err)
	require.NoError(ch40.Set(0.5))

	found, err := st.CheckUnused()
	require.NoError(err)
	require.Len(found, 1)
	assert.Equal(7, found[0].Channel)
	assert.Equal(-0.3, found[0].Volts)

	warned := logs.FilterMessage("unused source channel not zero").All()
	require.Len(warned, 1)
	assert.Equal(int64(7), warned[0].ContextMap()["channel"])
}

func TestUnusedChannels(t *testing.T) {
	tests := []struct {
		description string
		used        []int
		max         int
		expect      []int
	}{
		{
			description: "complement keeps both boundaries",
			used:        []int{2, 3, 46},
			max:         47,
			expect: []int{1, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
				16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29,
				30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43,
				44, 45, 47},
		}, {
			description: "all used",
			used:        []int{1, 2, 3},
			max:         3,
			expect:      nil,
		}, {
			description: "none used",
			used:        nil,
			max:         3,
			expect:      []int{1, 2, 3},
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.expect, UnusedChannels(tc.used, tc.max))
		})
	}
}
