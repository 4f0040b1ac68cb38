// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

// Package instrument defines the numeric get/set contracts the rest of the
// toolkit expects from the measurement hardware, plus the backends that
// satisfy them.  The core never sees a wire protocol, only parameters.
package instrument

import (
	"errors"

	"github.com/nanolab/samplectl/param"
)

var (
	ErrNoSuchChannel = errors.New("no such channel")
)

// VoltageSource is a multi-channel DC voltage source.  Channels are numbered
// from 1, the way they are labelled on the instrument front panel and in the
// sample settings file.
type VoltageSource interface {
	// Channels returns the number of channels the source has.
	Channels() int

	// Channel returns the voltage parameter for channel n.
	Channel(n int) (param.Parameter, error)

	// LastKnown returns the most recent voltage seen on channel n without
	// querying the hardware.
	LastKnown(n int) (float64, error)
}

// Lockin is a lock-in amplifier.  It satisfies measure.Lockin.
type Lockin interface {
	// X returns the in-phase signal component in volts.
	X() (float64, error)

	// R returns the signal magnitude in volts.
	R() (float64, error)

	// Display returns the quantity currently shown on the signal channel.
	Display() (string, error)

	// Amplitude is the raw AC excitation amplitude parameter.
	Amplitude() param.Parameter
}
