// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package interlock

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
)

func TestNew(t *testing.T) {
	tests := []struct {
		description string
		config      Config
		expectErr   error
	}{
		{
			description: "basic test",
			config: Config{
				Address:    0x20,
				SampleRate: 100 * physic.Hertz,
				Debounce:   20 * time.Millisecond,
				Watches: []Watch{
					{Input: 1, Name: "compressor"},
				},
			},
		}, {
			description: "sampling rate too fast for i2c",
			config: Config{
				Address:    0x20,
				SampleRate: 100000 * physic.Hertz,
				Debounce:   20 * time.Millisecond,
				Watches: []Watch{
					{Input: 1, Name: "compressor"},
				},
			},
			expectErr: errSampleRateTooFast,
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)

			m, err := New(tc.config, zap.NewNop(), prometheus.NewRegistry())

			if tc.expectErr == nil {
				assert.NotNil(m)
				assert.NoError(err)
				return
			}

			assert.ErrorIs(err, tc.expectErr)
			assert.Nil(m)
		})
	}
}

func TestStart(t *testing.T) {
	tests := []struct {
		description string
		cancelSet   bool
		openErr     bool
		connectErr  bool
		expectErr   error
	}{
		{
			description: "basic test",
		}, {
			description: "fails when already started",
			cancelSet:   true,
			expectErr:   errAlreadyStarted,
		}, {
			description: "open fails",
			openErr:     true,
			expectErr:   errAlreadyStarted,
		}, {
			description: "connect fails",
			connectErr:  true,
			expectErr:   errAlreadyStarted,
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			m, err := New(Config{
				I2CFile:    "/fake/i2c",
				Address:    0x20,
				SampleRate: 1 * physic.Hertz,
				Debounce:   20 * time.Millisecond,
				Watches: []Watch{
					{Input: 1, Name: "compressor"},
				},
			}, zap.NewNop(), prometheus.NewRegistry())
			require.NotNil(m)
			require.NoError(err)

			w := new(mockWrapper)

			if tc.cancelSet {
				_, m.cancel = context.WithCancel(context.Background())
			} else if tc.openErr {
				w.On("Open", mock.Anything).Return(tc.expectErr).Once()
			} else {
				w.On("Open", mock.Anything).Return(nil).Once()
				w.On("Close").Return(nil)

				if tc.connectErr {
					w.On("Connect", mock.Anything).Return([]conn.Conn{}, tc.expectErr).Once()
				} else {
					c0 := new(mockConn)
					c1 := new(mockConn)
					c1.On("Tx", mock.Anything, mock.Anything).Return(nil)
					w.On("Connect", mock.Anything).Return([]conn.Conn{c0, c1}, nil).Once()
				}
			}
			m.wrapper = w

			ctx := context.Background()

			err = m.Start(ctx)
			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
				return
			}

			assert.NoError(err)

			m.Stop(ctx)
		})
	}
}

func TestStopWhileSampling(t *testing.T) {
	require := require.New(t)

	m, err := New(Config{
		I2CFile:    "/fake/i2c",
		Address:    0x20,
		SampleRate: 5000 * physic.Hertz,
		Debounce:   time.Millisecond,
		Watches: []Watch{
			{Input: 1, Name: "compressor"},
		},
	}, zap.NewNop(), prometheus.NewRegistry())
	require.NoError(err)

	c0 := new(mockConn)
	c1 := new(mockConn)
	c1.On("Tx", mock.Anything, mock.Anything).Return(nil)

	w := new(mockWrapper)
	w.On("Open", mock.Anything).Return(nil).Once()
	w.On("Connect", mock.Anything).Return([]conn.Conn{c0, c1}, nil).Once()
	w.On("Close").Return(nil)
	m.wrapper = w

	ctx := context.Background()
	require.NoError(m.Start(ctx))

	// Let ticks queue up so Stop races an in-flight ReadInputs.
	time.Sleep(3 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		m.Stop(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func newTestMonitor(t *testing.T, rx0, rx1 byte) (*Monitor, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)

	m, err := New(Config{
		Address:    0x20,
		SampleRate: 100 * physic.Hertz,
		Debounce:   20 * time.Millisecond,
		Watches: []Watch{
			{Input: 1, Name: "compressor"},
			{Input: 16, Name: "water flow"},
		},
	}, zap.New(core), prometheus.NewRegistry())
	require.NoError(t, err)

	c0 := new(mockConn)
	c0.On("Tx", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).([]byte)[0] = rx0
		}).Return(nil)
	c1 := new(mockConn)
	c1.On("Tx", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).([]byte)[0] = rx1
		}).Return(nil)

	m.in = []conn.Conn{c0, c1}
	return m, logs
}

func TestReadInputs(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// Input 1 is port 1 bit 7, input 16 is port 0 bit 0.
	m, _ := newTestMonitor(t, 0x01, 0x80)

	got, err := m.ReadInputs()
	require.NoError(err)
	assert.Equal(map[int]int{1: 1, 16: 1}, got)
}

func TestReadAndDebounce(t *testing.T) {
	assert := assert.New(t)

	m, logs := newTestMonitor(t, 0x00, 0x80)

	ignoreUntil := make(map[int]time.Time)
	vals := make(map[int]int)

	// First pass: compressor contact closes, water flow stays open.
	m.readAndDebounce(ignoreUntil, vals)
	assert.Equal(1, vals[1])
	assert.Equal(1, logs.FilterMessage("interlock closed").Len())
	assert.Equal(float64(1), testutil.ToFloat64(m.state.WithLabelValues("compressor")))

	// Second pass: no transitions, nothing new logged.
	m.readAndDebounce(ignoreUntil, vals)
	assert.Equal(1, logs.Len())
}
