// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package param

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrInvalidRatio = errors.New("invalid division ratio")
)

// VoltageDivider scales between a raw instrument parameter and the effective
// voltage at the sample.  Get returns the upstream value divided by the
// ratio; Set writes the requested value multiplied by the ratio upstream.
//
// The ratio is the raw/effective quotient and must be positive.  It may be
// changed at runtime and takes effect on the next Get or Set.
type VoltageDivider struct {
	upstream Parameter

	mu    sync.Mutex
	ratio float64
	label string
}

// NewVoltageDivider wraps upstream with the given division ratio.
func NewVoltageDivider(upstream Parameter, ratio float64) (*VoltageDivider, error) {
	if ratio <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidRatio, ratio)
	}
	return &VoltageDivider{
		upstream: upstream,
		ratio:    ratio,
	}, nil
}

// Get queries the upstream parameter and returns the at-sample voltage.
// Nothing is cached.
func (d *VoltageDivider) Get() (float64, error) {
	raw, err := d.upstream.Get()
	if err != nil {
		return 0, err
	}
	return raw / d.Ratio(), nil
}

// Set writes the raw equivalent of the requested at-sample voltage upstream.
// Whether the upstream accepted the exact value is the upstream's concern.
func (d *VoltageDivider) Set(value float64) error {
	return d.upstream.Set(value * d.Ratio())
}

// Ratio returns the current division ratio.
func (d *VoltageDivider) Ratio() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.ratio
}

// SetRatio replaces the division ratio.  No history is kept.
func (d *VoltageDivider) SetRatio(ratio float64) error {
	if ratio <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidRatio, ratio)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.ratio = ratio
	return nil
}

// Upstream returns the wrapped raw parameter.  Hardware limits are expressed
// in raw instrument units, so range validators belong on the upstream, not
// on the divider.
func (d *VoltageDivider) Upstream() Parameter {
	return d.upstream
}

// Name returns the label if one was assigned, otherwise the upstream name.
func (d *VoltageDivider) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.label != "" {
		return d.label
	}
	return d.upstream.Name()
}

// SetLabel assigns a display label, typically from the channel labels
// section of the sample settings file.
func (d *VoltageDivider) SetLabel(label string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.label = label
}
