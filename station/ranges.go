// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package station

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nanolab/samplectl/param"
)

// SetRanges applies the per-channel bounds from the Channel ranges section
// to the given channel parameters.  Bounds are "min max" strings in raw
// instrument volts; a malformed bound fails the whole call up front rather
// than being skipped.  Channels with no configured bound keep whatever
// validator they already have.
//
// When a channel is wrapped in a VoltageDivider the bound lands on the
// upstream parameter, because hardware limits are expressed in raw units.
func (s *Station) SetRanges(channels map[int]param.Setter) error {
	ranges, err := s.store.Section(SectionRanges)
	if err != nil {
		return err
	}

	for ch, p := range channels {
		bound, ok := ranges[strconv.Itoa(ch)]
		if !ok {
			s.log.Debug("no range configured, keeping default",
				zap.Int("channel", ch))
			continue
		}

		min, max, err := parseRange(bound)
		if err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}

		target := p
		if d, ok := p.(*param.VoltageDivider); ok {
			target = d.Upstream()
		}

		validated, ok := target.(param.Validated)
		if !ok {
			return fmt.Errorf("channel %d does not accept validators", ch)
		}
		validated.SetValidator(param.Numbers{Min: min, Max: max})
	}
	return nil
}

// parseRange splits a "min max" bound string.
func parseRange(bound string) (min, max float64, err error) {
	tokens := strings.Fields(bound)
	if len(tokens) != 2 {
		return 0, 0, fmt.Errorf("%w: expected \"min max\", got %q", ErrMalformedRange, bound)
	}

	if min, err = strconv.ParseFloat(tokens[0], 64); err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrMalformedRange, bound, err)
	}
	if max, err = strconv.ParseFloat(tokens[1], 64); err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrMalformedRange, bound, err)
	}
	if min > max {
		return 0, 0, fmt.Errorf("%w: %q: min exceeds max", ErrMalformedRange, bound)
	}
	return min, max, nil
}
