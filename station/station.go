// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

// Package station wires the sample settings file to the instruments: named
// channels, voltage dividers, ramp-speed limits, per-channel ranges and the
// consistency checks run at session start.
package station

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/nanolab/samplectl/instrument"
	"github.com/nanolab/samplectl/param"
	"github.com/nanolab/samplectl/settings"
)

// Section names in the sample settings file.
const (
	SectionChannelParams = "Channel Parameters"
	SectionGains         = "Gain settings"
	SectionLabels        = "Channel Labels"
	SectionRamps         = "Ramp speeds"
	SectionRanges        = "Channel ranges"
)

var (
	ErrMalformedRange = errors.New("malformed channel range")
	ErrCutterMismatch = errors.New("cutter voltages diverged")
)

// Station binds one voltage source to the sample settings file.
type Station struct {
	log    *zap.Logger
	store  *settings.Store
	source instrument.VoltageSource
}

func New(log *zap.Logger, store *settings.Store, source instrument.VoltageSource) *Station {
	return &Station{
		log:    log,
		store:  store,
		source: source,
	}
}

// Store returns the settings store the station was built with.
func (s *Station) Store() *settings.Store {
	return s.store
}

// Source returns the voltage source the station drives.
func (s *Station) Source() instrument.VoltageSource {
	return s.source
}

// BiasChannels returns the three bias channel numbers from the settings
// file: topo, left sensor and right sensor.
func (s *Station) BiasChannels() ([]int, error) {
	fields := []string{
		"topo bias channel",
		"left sensor bias channel",
		"right sensor bias channel",
	}

	out := make([]int, 0, len(fields))
	for _, f := range fields {
		ch, err := s.store.Int(SectionChannelParams, f)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

// UsedChannels returns the sorted channel numbers that carry a label.
func (s *Station) UsedChannels() ([]int, error) {
	labels, err := s.ChannelLabels()
	if err != nil {
		return nil, err
	}

	out := make([]int, 0, len(labels))
	for ch := range labels {
		out = append(out, ch)
	}
	sort.Ints(out)
	return out, nil
}

// ChannelLabels returns the labelled channels, keyed by channel number.
func (s *Station) ChannelLabels() (map[int]string, error) {
	raw, err := s.store.Section(SectionLabels)
	if err != nil {
		return nil, err
	}

	out := make(map[int]string, len(raw))
	for field, label := range raw {
		ch, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("[%s] %s: %w", SectionLabels, field, err)
		}
		out[ch] = label
	}
	return out, nil
}

// Slopes returns the maximum ramp speed per used channel in V/s.  Bias
// channels and the backgate have their own, slower limits.
func (s *Station) Slopes() (map[int]float64, error) {
	def, err := s.store.Float(SectionRamps, "max rampspeed")
	if err != nil {
		return nil, err
	}
	biasSlope, err := s.store.Float(SectionRamps, "max rampspeed bias")
	if err != nil {
		return nil, err
	}
	bgSlope, err := s.store.Float(SectionRamps, "max rampspeed backgate")
	if err != nil {
		return nil, err
	}

	used, err := s.UsedChannels()
	if err != nil {
		return nil, err
	}

	out := make(map[int]float64, len(used))
	for _, ch := range used {
		out[ch] = def
	}

	backgate, err := s.store.Int(SectionChannelParams, "backgate channel")
	if err != nil {
		return nil, err
	}
	out[backgate] = bgSlope

	bias, err := s.BiasChannels()
	if err != nil {
		return nil, err
	}
	for _, ch := range bias {
		out[ch] = biasSlope
	}
	return out, nil
}

// Channels returns the used source channels keyed by channel number, with
// the bias channels replaced by their voltage dividers so Get/Set work in
// at-sample volts.  Divider-wrapped channels carry their label from the
// settings file.
func (s *Station) Channels() (map[int]param.Parameter, error) {
	used, err := s.UsedChannels()
	if err != nil {
		return nil, err
	}

	out := make(map[int]param.Parameter, len(used))
	for _, ch := range used {
		p, err := s.source.Channel(ch)
		if err != nil {
			return nil, err
		}
		out[ch] = p
	}

	labels, err := s.ChannelLabels()
	if err != nil {
		return nil, err
	}

	dividers := []struct {
		chanField   string
		factorField string
	}{
		{chanField: "topo bias channel", factorField: "dc factor topo"},
		{chanField: "left sensor bias channel", factorField: "dc factor left"},
		{chanField: "right sensor bias channel", factorField: "dc factor right"},
	}

	for _, dv := range dividers {
		ch, err := s.store.Int(SectionChannelParams, dv.chanField)
		if err != nil {
			return nil, err
		}
		factor, err := s.store.Float(SectionGains, dv.factorField)
		if err != nil {
			return nil, err
		}

		raw, err := s.source.Channel(ch)
		if err != nil {
			return nil, err
		}
		d, err := param.NewVoltageDivider(raw, factor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", dv.chanField, err)
		}
		if label, ok := labels[ch]; ok {
			d.SetLabel(label)
		}
		out[ch] = d
	}

	return out, nil
}

// NamedChannel resolves a named channel assignment such as "left cutter"
// from the Channel Parameters section to its source channel parameter.
func (s *Station) NamedChannel(field string) (param.Parameter, error) {
	ch, err := s.store.Int(SectionChannelParams, field)
	if err != nil {
		return nil, err
	}
	return s.source.Channel(ch)
}

// SetAll drives every labelled channel to the same raw voltage.  With
// includeBias the topo bias divider is also set, in at-sample volts.
func (s *Station) SetAll(value float64, includeBias bool) error {
	used, err := s.UsedChannels()
	if err != nil {
		return err
	}

	for _, ch := range used {
		p, err := s.source.Channel(ch)
		if err != nil {
			return err
		}
		if err := p.Set(value); err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
	}

	if !includeBias {
		return nil
	}

	channels, err := s.Channels()
	if err != nil {
		return err
	}
	topo, err := s.store.Int(SectionChannelParams, "topo bias channel")
	if err != nil {
		return err
	}
	return channels[topo].Set(value)
}

// Unused is an unlabelled source channel that was found away from zero.
type Unused struct {
	Channel int
	Volts   float64
}

// CheckUnused reports every unlabelled source channel sitting at a nonzero
// voltage.  Each finding is also logged as a warning.
func (s *Station) CheckUnused() ([]Unused, error) {
	used, err := s.UsedChannels()
	if err != nil {
		return nil, err
	}

	var out []Unused
	for _, ch := range UnusedChannels(used, s.source.Channels()) {
		v, err := s.source.LastKnown(ch)
		if err != nil {
			return nil, err
		}
		if v != 0 {
			s.log.Warn("unused source channel not zero",
				zap.Int("channel", ch),
				zap.Float64("volts", v))
			out = append(out, Unused{Channel: ch, Volts: v})
		}
	}
	return out, nil
}

// UnusedChannels returns the channels in 1..max, inclusive on both ends,
// that are not in used.
func UnusedChannels(used []int, max int) []int {
	inUse := make(map[int]struct{}, len(used))
	for _, ch := range used {
		inUse[ch] = struct{}{}
	}

	var out []int
	for ch := 1; ch <= max; ch++ {
		if _, ok := inUse[ch]; !ok {
			out = append(out, ch)
		}
	}
	return out
}
