// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package measure

import (
	"fmt"
	"sync"

	"github.com/nanolab/samplectl/param"
)

// Display scale factors for derived currents.
const (
	Amps     = 1.0
	Nanoamps = 1e9
	Picoamps = 1e12
)

// Current derives a DC current from a voltmeter reading and an I/V converter
// gain, scaled to a fixed display unit.  The gain is a mutable scalar the
// caller sets once per converter setting; it is not read from configuration.
type Current struct {
	volts param.Getter
	scale float64

	mu   sync.Mutex
	gain float64
}

// NewCurrent makes a current derivation over the given voltage reading.
// scale picks the display unit, e.g. Picoamps.
func NewCurrent(volts param.Getter, gain, scale float64) (*Current, error) {
	if gain == 0 {
		return nil, fmt.Errorf("%w: gain must be nonzero", ErrInvalidGain)
	}
	if scale == 0 {
		scale = Amps
	}
	return &Current{
		volts: volts,
		scale: scale,
		gain:  gain,
	}, nil
}

func (c *Current) Get() (float64, error) {
	v, err := c.volts.Get()
	if err != nil {
		return 0, err
	}
	return v / c.Gain() * c.scale, nil
}

// Gain returns the current I/V converter gain in V/A.
func (c *Current) Gain() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.gain
}

// SetGain replaces the converter gain, effective on the next Get.
func (c *Current) SetGain(gain float64) error {
	if gain == 0 {
		return fmt.Errorf("%w: gain must be nonzero", ErrInvalidGain)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gain = gain
	return nil
}

// CurrentBias is a settable current sourced by driving a voltage channel
// through a bias resistance.  Get reports the sourced current; Set drives
// the channel to the voltage producing the requested current.  It implements
// param.Parameter in the chosen display unit.
type CurrentBias struct {
	Channel param.Parameter
	// BiasResistance converts between channel voltage and sourced
	// current, in Ohm (V/A).
	BiasResistance float64
	// Scale picks the display unit, e.g. Nanoamps.
	Scale float64
}

func (b CurrentBias) Get() (float64, error) {
	if b.BiasResistance == 0 {
		return 0, fmt.Errorf("%w: bias resistance must be nonzero", ErrInvalidGain)
	}
	v, err := b.Channel.Get()
	if err != nil {
		return 0, err
	}
	return v / b.BiasResistance * b.scale(), nil
}

func (b CurrentBias) Set(value float64) error {
	if b.BiasResistance == 0 {
		return fmt.Errorf("%w: bias resistance must be nonzero", ErrInvalidGain)
	}
	return b.Channel.Set(value / b.scale() * b.BiasResistance)
}

func (b CurrentBias) Name() string {
	return b.Channel.Name() + " bias current"
}

func (b CurrentBias) scale() float64 {
	if b.Scale != 0 {
		return b.Scale
	}
	return Amps
}
