// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

// Package param provides the numeric parameter abstraction shared by the
// instrument backends and the derived measurements: a settable/gettable
// float64 with an optional validator guarding writes.
package param

import (
	"errors"
	"sync"
)

var (
	ErrOutOfRange = errors.New("value out of range")
	ErrNotAllowed = errors.New("value not allowed")
)

// Getter reads the live value of a numeric parameter.
type Getter interface {
	Get() (float64, error)
}

// Setter writes a numeric parameter.
type Setter interface {
	Set(value float64) error
}

// Parameter is a named, settable, readable numeric instrument parameter.
type Parameter interface {
	Getter
	Setter
	Name() string
}

// Validated is implemented by parameters whose Set is guarded by a
// Validator that can be swapped at runtime.
type Validated interface {
	SetValidator(v Validator)
}

// Manual is an in-memory parameter with no instrument behind it.  It is used
// for calibration scalars such as I/V converter gains.
type Manual struct {
	name string
	unit string

	mu        sync.Mutex
	value     float64
	validator Validator
}

// NewManual makes a manual parameter.  The zero value is 0 and any value is
// accepted until a validator is set.
func NewManual(name, unit string) *Manual {
	return &Manual{
		name:      name,
		unit:      unit,
		validator: Any{},
	}
}

func (m *Manual) Name() string {
	return m.name
}

// Unit returns the display unit of the parameter, e.g. "V/A".
func (m *Manual) Unit() string {
	return m.unit
}

func (m *Manual) Get() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.value, nil
}

func (m *Manual) Set(value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validator.Validate(value); err != nil {
		return err
	}
	m.value = value
	return nil
}

func (m *Manual) SetValidator(v Validator) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.validator = v
}
