// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

// Package measure derives physical quantities from raw instrument readings:
// conductance and resistance from a lock-in signal, current from a DC
// voltage.  Every derivation is recomputed from live values on each read;
// nothing is stored.
package measure

import (
	"errors"
	"fmt"

	"github.com/nanolab/samplectl/param"
)

// ResistanceQuantum is h/e² in Ohm, the default normalization used to
// express conductance in units of e²/h.  Historic call sites disagreed
// between 25.818 kΩ and 25.8125 kΩ; the constant is carried as data on each
// strategy so a settings file can pin one value for the whole session.
const ResistanceQuantum = 25.818e3

// DisplayX is the lock-in display mode reporting the in-phase component.
const DisplayX = "X"

var (
	ErrNotDisplayingX = errors.New("lock-in is not displaying X")
	ErrInvalidGain    = errors.New("invalid gain")
)

// Lockin is the slice of a lock-in amplifier the derivations need.
type Lockin interface {
	// X returns the in-phase signal component in volts.
	X() (float64, error)

	// Display returns the quantity currently shown on the signal channel.
	Display() (string, error)
}

// Conductance derives the sample conductance in units of e²/h from the
// lock-in in-phase signal, the I/V converter gain (V/A) and the AC
// excitation voltage at the sample.  It implements param.Getter.
type Conductance struct {
	Lockin     Lockin
	Gain       param.Getter
	Excitation param.Getter

	// Quantum overrides ResistanceQuantum when nonzero.
	Quantum float64
}

func (c Conductance) Get() (float64, error) {
	if err := c.checkDisplay(); err != nil {
		return 0, err
	}

	x, gain, vsample, err := c.read()
	if err != nil {
		return 0, err
	}

	i := x / gain
	return i / vsample * c.quantum(), nil
}

// Series scales an already-acquired buffer of in-phase readings to
// conductance, for the fast 2D sweeps that read the lock-in buffer in one
// go.  The same display precondition applies as for a single read.
func (c Conductance) Series(xs []float64) ([]float64, error) {
	if err := c.checkDisplay(); err != nil {
		return nil, err
	}

	_, gain, vsample, err := c.read()
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x / gain / vsample * c.quantum()
	}
	return out, nil
}

func (c Conductance) quantum() float64 {
	if c.Quantum != 0 {
		return c.Quantum
	}
	return ResistanceQuantum
}

func (c Conductance) checkDisplay() error {
	display, err := c.Lockin.Display()
	if err != nil {
		return err
	}
	if display != DisplayX {
		return fmt.Errorf("%w: displaying %q", ErrNotDisplayingX, display)
	}
	return nil
}

func (c Conductance) read() (x, gain, vsample float64, err error) {
	if x, err = c.Lockin.X(); err != nil {
		return 0, 0, 0, err
	}
	if gain, err = c.Gain.Get(); err != nil {
		return 0, 0, 0, err
	}
	if vsample, err = c.Excitation.Get(); err != nil {
		return 0, 0, 0, err
	}
	return x, gain, vsample, nil
}

// Resistance derives the sample resistance in Ohm.  It is computed directly
// as V/I rather than as the reciprocal of a Conductance so the result does
// not depend on the conductance normalization constant.
type Resistance struct {
	Lockin     Lockin
	Gain       param.Getter
	Excitation param.Getter
}

func (r Resistance) Get() (float64, error) {
	c := Conductance{Lockin: r.Lockin, Gain: r.Gain, Excitation: r.Excitation}
	if err := c.checkDisplay(); err != nil {
		return 0, err
	}

	x, gain, vsample, err := c.read()
	if err != nil {
		return 0, err
	}

	i := x / gain
	return vsample / i, nil
}
