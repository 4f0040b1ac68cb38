// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package station

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

var (
	ErrInvalidSlope = errors.New("invalid ramp slope")
)

// RampOption configures a Ramper.
type RampOption interface {
	apply(r *Ramper)
}

// Ramper steps parameters toward a target no faster than a slope limit.
// Gate and bias voltages must not jump; the limits come from the Ramp speeds
// section of the settings file.
type Ramper struct {
	clock clock.Clock
	step  time.Duration
}

// NewRamper makes a ramper that writes one step every 20 ms.
func NewRamper(opts ...RampOption) *Ramper {
	r := &Ramper{
		clock: clock.New(),
		step:  20 * time.Millisecond,
	}

	for _, opt := range opts {
		opt.apply(r)
	}

	return r
}

// rampable is satisfied by param.Parameter; listed locally to keep the
// ramper usable on dividers and raw channels alike.
type rampable interface {
	Get() (float64, error)
	Set(value float64) error
}

// Ramp drives p from its present value to target at no more than slope
// volts per second.  The final write is exactly target.
func (r *Ramper) Ramp(ctx context.Context, p rampable, target, slope float64) error {
	if slope <= 0 {
		return fmt.Errorf("%w: %g V/s", ErrInvalidSlope, slope)
	}

	current, err := p.Get()
	if err != nil {
		return err
	}

	stepSize := slope * r.step.Seconds()

	ticker := r.clock.Ticker(r.step)
	defer ticker.Stop()

	for current != target {
		delta := target - current
		switch {
		case delta > stepSize:
			current += stepSize
		case delta < -stepSize:
			current -= stepSize
		default:
			current = target
		}

		if err := p.Set(current); err != nil {
			return err
		}
		if current == target {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// UseClock provides a way to set the clock used.  This is used for testing.
func UseClock(c clock.Clock) RampOption {
	return &clockOption{clk: c}
}

// UseStep overrides the interval between ramp steps.
func UseStep(step time.Duration) RampOption {
	return &stepOption{step: step}
}

type clockOption struct {
	clk clock.Clock
}

func (c clockOption) apply(r *Ramper) {
	r.clock = c.clk
}

type stepOption struct {
	step time.Duration
}

func (s stepOption) apply(r *Ramper) {
	if s.step > 0 {
		r.step = s.step
	}
}
