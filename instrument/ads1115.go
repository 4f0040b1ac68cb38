// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package instrument

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	ads1115PointerConv   = 0x00
	ads1115PointerConfig = 0x01

	// Full-scale range used for all conversions, PGA bits 001.
	ads1115FullScale = 4.096
)

// ADS1115Config selects the bus, device and input of an ADS1115 ADC used as
// a poor man's DMM for DC current readout through an I/V converter.
type ADS1115Config struct {
	// Bus is the I²C bus name, e.g. "2" for /dev/i2c-2.
	Bus string `mapstructure:"bus"`

	// Addr is the device address, usually 0x48.
	Addr int `mapstructure:"addr"`

	// Channel is the single-ended input, 0 through 3.
	Channel int `mapstructure:"channel"`

	// SampleRate in samples per second; one of the rates the converter
	// supports, 128 when zero.
	SampleRate int `mapstructure:"sample_rate"`

	// Scale and Offset apply a linear calibration to the converted
	// voltage.  A zero Scale means 1.0.
	Scale  float64 `mapstructure:"scale"`
	Offset float64 `mapstructure:"offset"`
}

// ADS1115 reads a single-ended voltage from an ADS1115 over I²C using
// one-shot conversions.  It implements param.Getter; each Get blocks for one
// conversion.
type ADS1115 struct {
	cfg  ADS1115Config
	conv uint16

	mu  sync.Mutex
	tx  txer
	bus i2c.BusCloser
}

// txer is the slice of i2c.Dev the driver needs.  Tests substitute a mock.
type txer interface {
	Tx(w, r []byte) error
}

// OpenADS1115 initializes the host, opens the bus and prepares the device.
func OpenADS1115(cfg ADS1115Config) (*ADS1115, error) {
	conv, err := ads1115ConfigWord(cfg.Channel, cfg.SampleRate)
	if err != nil {
		return nil, err
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}

	return &ADS1115{
		cfg:  cfg,
		conv: conv,
		tx:   &i2c.Dev{Addr: uint16(cfg.Addr), Bus: bus},
		bus:  bus,
	}, nil
}

func (a *ADS1115) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bus != nil {
		return a.bus.Close()
	}
	return nil
}

// Get triggers a single conversion and returns the calibrated voltage.
func (a *ADS1115) Get() (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.tx.Tx([]byte{ads1115PointerConfig, byte(a.conv >> 8), byte(a.conv)}, nil); err != nil {
		return 0, fmt.Errorf("write config: %w", err)
	}

	time.Sleep(a.conversionTime())

	raw := make([]byte, 2)
	if err := a.tx.Tx([]byte{ads1115PointerConv}, raw); err != nil {
		return 0, fmt.Errorf("read conversion: %w", err)
	}

	counts := int16(raw[0])<<8 | int16(raw[1])
	scale := a.cfg.Scale
	if scale == 0 {
		scale = 1.0
	}
	return float64(counts)*ads1115FullScale/32768.0*scale + a.cfg.Offset, nil
}

func (a *ADS1115) conversionTime() time.Duration {
	rate := a.cfg.SampleRate
	if rate <= 0 {
		rate = 128
	}
	return time.Duration(1000/rate+2) * time.Millisecond
}

// ads1115ConfigWord builds the one-shot conversion config register value for
// a single-ended channel at the requested sample rate.
func ads1115ConfigWord(channel, sampleRate int) (uint16, error) {
	if channel < 0 || channel > 3 {
		return 0, fmt.Errorf("%w: ads1115 input %d", ErrNoSuchChannel, channel)
	}
	mux := uint16(0x4 + channel)

	var dr uint16
	switch sampleRate {
	case 8:
		dr = 0x0
	case 16:
		dr = 0x1
	case 32:
		dr = 0x2
	case 64:
		dr = 0x3
	case 0, 128:
		dr = 0x4
	case 250:
		dr = 0x5
	case 475:
		dr = 0x6
	case 860:
		dr = 0x7
	default:
		return 0, fmt.Errorf("unsupported sample rate %d", sampleRate)
	}

	var word uint16 = 0x8000 // OS: start a single conversion
	word |= mux << 12
	word |= 0x1 << 9 // PGA ±4.096 V
	word |= 1 << 8   // single-shot mode
	word |= dr << 5
	word |= 0x3 // comparator disabled
	return word, nil
}
