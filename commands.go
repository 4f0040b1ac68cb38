// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"

	"github.com/nanolab/samplectl/instrument"
	"github.com/nanolab/samplectl/settings"
	"github.com/nanolab/samplectl/station"
)

func (g *Globals) logger() (*zap.Logger, error) {
	cfg := sallust.Config{
		Encoding:         "console",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if g.Debug {
		cfg.Level = "DEBUG"
	}
	return cfg.Build()
}

// openStation wires a station for the one-shot commands.  They only touch
// the settings file and the source, so the lock-in stays out of it.
func (g *Globals) openStation(log *zap.Logger) (*station.Station, error) {
	cfg, err := LoadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	store, err := settings.Open(g.Settings)
	if err != nil {
		return nil, err
	}
	source := instrument.NewSimSource(cfg.Source.Name, cfg.Source.Channels)
	return station.New(log.Named("station"), store, source), nil
}

type GetCmd struct {
	Section string `arg:"" help:"Settings section, e.g. 'Gain settings'."`
	Field   string `arg:"" help:"Field within the section."`
}

func (c *GetCmd) Run(g *Globals) error {
	store, err := settings.Open(g.Settings)
	if err != nil {
		return err
	}
	value, err := store.Get(c.Section, c.Field)
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

type SetCmd struct {
	Section string `arg:"" help:"Settings section."`
	Field   string `arg:"" help:"Field within the section."`
	Value   string `arg:"" help:"New value."`
}

func (c *SetCmd) Run(g *Globals) error {
	store, err := settings.Open(g.Settings)
	if err != nil {
		return err
	}
	return store.Set(c.Section, c.Field, c.Value)
}

type ChannelsCmd struct{}

func (c *ChannelsCmd) Run(g *Globals) error {
	log, err := g.logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := g.openStation(log)
	if err != nil {
		return err
	}

	labels, err := st.ChannelLabels()
	if err != nil {
		return err
	}

	for _, ch := range sortedKeys(labels) {
		fmt.Printf("%2d  %s\n", ch, labels[ch])
	}
	return nil
}

type VoltagesCmd struct{}

func (c *VoltagesCmd) Run(g *Globals) error {
	log, err := g.logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := g.openStation(log)
	if err != nil {
		return err
	}

	channels, err := st.Channels()
	if err != nil {
		return err
	}

	for _, ch := range sortedKeys(channels) {
		p := channels[ch]
		v, err := p.Get()
		if err != nil {
			return fmt.Errorf("channel %d (%s): %w", ch, p.Name(), err)
		}
		fmt.Printf("%2d  %-20s %12.6f V\n", ch, p.Name(), v)
	}
	return nil
}

type RampCmd struct {
	Channel int     `arg:"" help:"Source channel number."`
	Target  float64 `arg:"" help:"Target voltage in volts."`
}

func (c *RampCmd) Run(g *Globals) error {
	log, err := g.logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := g.openStation(log)
	if err != nil {
		return err
	}

	slopes, err := st.Slopes()
	if err != nil {
		return err
	}
	slope, ok := slopes[c.Channel]
	if !ok {
		return fmt.Errorf("no ramp speed configured for channel %d", c.Channel)
	}

	ch, err := st.Source().Channel(c.Channel)
	if err != nil {
		return err
	}

	log.Info("ramping",
		zap.Int("channel", c.Channel),
		zap.Float64("target", c.Target),
		zap.Float64("slope", slope))
	return station.NewRamper().Ramp(context.Background(), ch, c.Target, slope)
}

type CheckCmd struct{}

func (c *CheckCmd) Run(g *Globals) error {
	log, err := g.logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := g.openStation(log)
	if err != nil {
		return err
	}

	unused, err := st.CheckUnused()
	if err != nil {
		return err
	}
	for _, u := range unused {
		fmt.Printf("channel %2d is unused but sits at %g V\n", u.Channel, u.Volts)
	}

	cutters, err := st.Cutters()
	switch {
	case errors.Is(err, settings.ErrUnknownKey):
		// Station has no cutter gates configured.
	case err != nil:
		return err
	default:
		v, err := cutters.Get()
		if err != nil {
			return err
		}
		fmt.Printf("cutters agree at %g V\n", v)
	}

	if len(unused) > 0 {
		return fmt.Errorf("%d unused channel(s) not at zero", len(unused))
	}
	return nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
