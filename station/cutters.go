// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package station

import (
	"fmt"
	"math"

	"github.com/nanolab/samplectl/param"
)

// DefaultCutterTolerance is how far the left and right cutter gates may
// diverge, in volts, before a read is refused.
const DefaultCutterTolerance = 0.05

// Cutters drives the left and right cutter gates as one logical knob.  The
// two gates are expected to track each other; a read that finds them apart
// by more than the tolerance fails rather than answering with either value.
type Cutters struct {
	Left  param.Parameter
	Right param.Parameter

	// Tolerance overrides DefaultCutterTolerance when nonzero.
	Tolerance float64
}

func (c Cutters) Name() string {
	return "cutters"
}

// Set writes both gates.
func (c Cutters) Set(value float64) error {
	if err := c.Left.Set(value); err != nil {
		return fmt.Errorf("left cutter: %w", err)
	}
	if err := c.Right.Set(value); err != nil {
		return fmt.Errorf("right cutter: %w", err)
	}
	return nil
}

// Get returns the common gate voltage, or ErrCutterMismatch when the gates
// have drifted apart beyond the tolerance.
func (c Cutters) Get() (float64, error) {
	left, err := c.Left.Get()
	if err != nil {
		return 0, fmt.Errorf("left cutter: %w", err)
	}
	right, err := c.Right.Get()
	if err != nil {
		return 0, fmt.Errorf("right cutter: %w", err)
	}

	tolerance := c.Tolerance
	if tolerance == 0 {
		tolerance = DefaultCutterTolerance
	}

	if math.Abs(left-right) > tolerance {
		return 0, fmt.Errorf("%w: left %g V, right %g V", ErrCutterMismatch, left, right)
	}
	return left, nil
}

// Cutters builds the paired cutter parameter from the channel assignments in
// the settings file.
func (s *Station) Cutters() (*Cutters, error) {
	left, err := s.NamedChannel("left cutter")
	if err != nil {
		return nil, err
	}
	right, err := s.NamedChannel("right cutter")
	if err != nil {
		return nil, err
	}
	return &Cutters{Left: left, Right: right}, nil
}
