// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package units

import (
	"fmt"
	"strconv"
	"strings"
)

// Voltage is a measurement of electric potential stored as a float64 in volts.
type Voltage float64

// ParseVoltage sets the voltage based on the string provided.  Both a number
// and units are required.
func ParseVoltage(s string) (Voltage, error) {
	list := []struct {
		suffix string
		scale  float64
	}{
		{suffix: "nv", scale: 1e-9},
		{suffix: "uv", scale: 1e-6},
		{suffix: "µv", scale: 1e-6},
		{suffix: "mv", scale: 1e-3},
		{suffix: "v", scale: 1.0},
	}

	known := make([]string, 0, len(list))

	trimmed := strings.TrimSpace(s)
	for _, unit := range list {

		if strings.HasSuffix(strings.ToLower(trimmed), unit.suffix) {
			trimmed = trimmed[:len(trimmed)-len(unit.suffix)]

			n, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
			if err != nil {
				return 0.0, fmt.Errorf("%w: '%s' %v", ErrInvalidUnit, s, err)
			}
			return Voltage(n * unit.scale), nil
		}
		known = append(known, unit.suffix)
	}

	return 0.0, fmt.Errorf("%w: unknown unit for '%s' valid: %s",
		ErrInvalidUnit, s, strings.Join(known, ", "))
}

// Millivolts returns the voltage as a floating point in mV.
func (v Voltage) Millivolts() float64 {
	return float64(v) * 1e3
}

// Microvolts returns the voltage as a floating point in µV.
func (v Voltage) Microvolts() float64 {
	return float64(v) * 1e6
}

// String returns the voltage formatted as a string in V.
func (v Voltage) String() string {
	return fmt.Sprintf("%gV", float64(v))
}
