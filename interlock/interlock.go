// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

// Package interlock watches the fridge safety interlocks, opto-isolated
// contacts wired to a SequentMicrosystems 16-input HAT on the rack.  Every
// transition is logged and exported as a gauge so a tripped compressor or
// water flow switch shows up before the magnet does something expensive.
package interlock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
)

var (
	errSampleRateTooFast = errors.New("sample rate too fast")
	errAlreadyStarted    = errors.New("already started")
)

// inputToBitMap is the input-number to port/bit wiring of the
// SequentMicrosystems.com 16 Opto-Isolated Inputs HAT v1.0 board.
var inputToBitMap = map[int]inputPinPortMap{
	16: {port: 0, bit: 0},
	15: {port: 0, bit: 1},
	14: {port: 0, bit: 2},
	13: {port: 0, bit: 3},
	12: {port: 0, bit: 4},
	11: {port: 0, bit: 5},
	10: {port: 0, bit: 6},
	9:  {port: 0, bit: 7},
	8:  {port: 1, bit: 0},
	7:  {port: 1, bit: 1},
	6:  {port: 1, bit: 2},
	5:  {port: 1, bit: 3},
	4:  {port: 1, bit: 4},
	3:  {port: 1, bit: 5},
	2:  {port: 1, bit: 6},
	1:  {port: 1, bit: 7},
}

type inputPinPortMap struct {
	port int
	bit  int
}

// Watch names one interlock contact on the input board.
type Watch struct {
	// Input is the input number printed on the board, 1 through 16.
	Input int `mapstructure:"input"`

	// Name identifies the interlock, e.g. "compressor" or "water flow".
	Name string `mapstructure:"name"`
}

type Config struct {
	// I2CFile is the bus the HAT answers on, e.g. "/dev/i2c-1".
	I2CFile string `mapstructure:"i2c_file"`

	// Address is the expander's I²C address.
	Address int `mapstructure:"address"`

	SampleRate physic.Frequency `mapstructure:"sample_rate"`

	// Debounce is how long a contact must hold a new state before the
	// change is believed.
	Debounce time.Duration `mapstructure:"debounce"`

	Watches []Watch `mapstructure:"watches"`
}

// Monitor polls the input expander and reports interlock transitions.
type Monitor struct {
	m         sync.Mutex
	config    Config
	log       *zap.Logger
	state     *prometheus.GaugeVec
	cancel    context.CancelFunc
	readPorts []bool

	wrapper expanderWrapper
	in      []conn.Conn
	wg      sync.WaitGroup
}

func (c Config) toPorts() []bool {
	out := make([]bool, 2)

	for _, w := range c.Watches {
		port := inputToBitMap[w.Input]
		out[port.port] = true
	}

	return out
}

func New(c Config, log *zap.Logger, reg prometheus.Registerer) (*Monitor, error) {
	if c.SampleRate > physic.Hertz*10000 {
		return nil, errSampleRateTooFast
	}
	if c.SampleRate == 0 {
		c.SampleRate = 10 * physic.Hertz
	}
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Monitor{
		config:    c,
		log:       log,
		readPorts: c.toPorts(),
		wrapper:   &hwWrapper{},
		state: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "samplectl",
			Subsystem: "interlock",
			Name:      "state",
			Help:      "Interlock contact state, 1 when closed.",
		}, []string{"name"}),
	}, nil
}

func (m *Monitor) Start(ctx context.Context) (err error) {
	m.m.Lock()
	defer m.m.Unlock()

	if m.cancel != nil {
		return errAlreadyStarted
	}

	if err := m.wrapper.Open(m.config.I2CFile); err != nil {
		return err
	}

	m.in, err = m.wrapper.Connect(m.config.Address)
	if err != nil {
		_ = m.wrapper.Close()
		return err
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.loop(ctx)

	return nil
}

func (m *Monitor) Stop(ctx context.Context) {
	m.m.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.m.Unlock()

	// The poll loop takes the same mutex inside ReadInputs, so the wait
	// must happen with the mutex released or a pending tick wedges both.
	if cancel != nil {
		cancel()
		m.wg.Wait()
	}

	m.m.Lock()
	defer m.m.Unlock()

	_ = m.wrapper.Close()
}

func (m *Monitor) loop(ctx context.Context) {
	sampleTicker := time.NewTicker(m.config.SampleRate.Period())
	defer sampleTicker.Stop()

	ignoreUntil := make(map[int]time.Time, len(m.config.Watches))
	current := make(map[int]int, len(m.config.Watches))

	for {
		select {
		case <-sampleTicker.C:
			m.readAndDebounce(ignoreUntil, current)
		case <-ctx.Done():
			m.wg.Done()
			return
		}
	}
}

// ReadInputs samples the watched ports and returns the raw contact state of
// every watched input, 1 when closed.
func (m *Monitor) ReadInputs() (map[int]int, error) {
	m.m.Lock()
	defer m.m.Unlock()

	rx := make([]byte, 2)

	for i, p := range m.readPorts {
		if p {
			r := make([]byte, 1)
			if err := m.in[i].Tx(nil, r); err != nil {
				return nil, err
			}
			rx[i] = r[0]
		}
	}

	out := make(map[int]int, len(m.config.Watches))
	for _, w := range m.config.Watches {
		bitMap := inputToBitMap[w.Input]

		if rx[bitMap.port]&(1<<bitMap.bit) != 0 {
			out[w.Input] = 1
		} else {
			out[w.Input] = 0
		}
	}

	return out, nil
}

func (m *Monitor) readAndDebounce(ignoreUntil map[int]time.Time, vals map[int]int) {
	now := time.Now()
	newVals, err := m.ReadInputs()
	if err != nil {
		m.log.Warn("interlock read failed", zap.Error(err))
		return
	}

	for _, w := range m.config.Watches {
		v := newVals[w.Input]
		if vals[w.Input] == v {
			continue
		}
		if !ignoreUntil[w.Input].Before(now) {
			continue
		}
		vals[w.Input] = v
		ignoreUntil[w.Input] = now.Add(m.config.Debounce)

		m.state.WithLabelValues(w.Name).Set(float64(v))
		if v == 0 {
			m.log.Warn("interlock opened",
				zap.String("name", w.Name),
				zap.Int("input", w.Input))
		} else {
			m.log.Info("interlock closed",
				zap.String("name", w.Name),
				zap.Int("input", w.Input))
		}
	}
}
