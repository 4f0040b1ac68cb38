// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package param

import "fmt"

// Validator decides whether a value may be written to a parameter.
type Validator interface {
	Validate(value float64) error
}

// Any accepts every value.  It is the default validator.
type Any struct{}

func (Any) Validate(float64) error {
	return nil
}

// Numbers accepts values in the closed interval [Min, Max].
type Numbers struct {
	Min float64
	Max float64
}

func (n Numbers) Validate(value float64) error {
	if value < n.Min || value > n.Max {
		return fmt.Errorf("%w: %g not in [%g, %g]", ErrOutOfRange, value, n.Min, n.Max)
	}
	return nil
}

// OneOf accepts only the listed values.  Used for stepped settings such as
// I/V converter gains that only exist in decade increments.
type OneOf []float64

func (o OneOf) Validate(value float64) error {
	for _, allowed := range o {
		if value == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %g not one of %v", ErrNotAllowed, value, []float64(o))
}
