// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"

	"github.com/nanolab/samplectl/httpserver"
	"github.com/nanolab/samplectl/instrument"
	"github.com/nanolab/samplectl/interlock"
	"github.com/nanolab/samplectl/measure"
	"github.com/nanolab/samplectl/output"
	"github.com/nanolab/samplectl/param"
	"github.com/nanolab/samplectl/settings"
	"github.com/nanolab/samplectl/station"
	"github.com/nanolab/samplectl/units"
)

// Config is the station configuration, read from a YAML file with
// SAMPLECTL_* environment overrides.  It describes the rack hardware; the
// per-sample calibration lives in the settings file instead.
type Config struct {
	Source     SourceConfig              `mapstructure:"source"`
	Lockin     LockinConfig              `mapstructure:"lockin"`
	ADC        *instrument.ADS1115Config `mapstructure:"adc"`
	Interlocks *interlock.Config         `mapstructure:"interlocks"`
	Monitor    MonitorConfig             `mapstructure:"monitor"`
	Outputs    OutputsConfig             `mapstructure:"outputs"`
	HTTP       httpserver.Config         `mapstructure:"http"`
}

type SourceConfig struct {
	Name     string `mapstructure:"name"`
	Channels int    `mapstructure:"channels"`
}

type LockinConfig struct {
	Name string `mapstructure:"name"`

	// Excitation is the at-sample AC excitation, e.g. "10 uV".  It is
	// applied through the AC divider at startup.
	Excitation units.Voltage `mapstructure:"excitation"`
}

type MonitorConfig struct {
	Namespace  string           `mapstructure:"namespace"`
	SampleRate physic.Frequency `mapstructure:"sample_rate"`
}

type OutputsConfig struct {
	Console bool               `mapstructure:"console"`
	MQTT    *output.MQTTConfig `mapstructure:"mqtt"`
}

// LoadConfig reads the station configuration.  A missing file yields the
// defaults, so a bare sim station runs with no configuration at all.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		Source:  SourceConfig{Name: "qdac", Channels: 48},
		Lockin:  LockinConfig{Name: "lockin"},
		Monitor: MonitorConfig{Namespace: "samplectl"},
		Outputs: OutputsConfig{Console: true},
		HTTP:    httpserver.Config{Address: ":8080"},
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SAMPLECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decodeVoltage,
		decodeFrequency,
		mapstructure.StringToTimeDurationHookFunc(),
	)))
	return cfg, err
}

// bindEnvs registers every key within cfg so viper consults the matching
// environment variable when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}

func decodeVoltage(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(units.Voltage(0)) {
		return data, nil
	}
	return units.ParseVoltage(data.(string))
}

func decodeFrequency(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(physic.Frequency(0)) {
		return data, nil
	}
	var f physic.Frequency
	if err := f.Set(data.(string)); err != nil {
		return nil, err
	}
	return f, nil
}

type RunCmd struct{}

func (c *RunCmd) Run(g *Globals) error {
	log, err := g.logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := LoadConfig(g.Config)
	if err != nil {
		return err
	}

	app := fx.New(
		fx.Supply(cfg, cfg.HTTP, log),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(
			func() (*settings.Store, error) { return settings.Open(g.Settings) },
			newSource,
			newLockin,
			newStation,
			newOutputs,
			newMonitor,
			newHandler,
			httpserver.New,
		),
		fx.Invoke(
			runStation,
			func(*http.Server) {},
		),
	)
	app.Run()
	return nil
}

func newSource(cfg Config) instrument.VoltageSource {
	return instrument.NewSimSource(cfg.Source.Name, cfg.Source.Channels)
}

func newLockin(cfg Config) *instrument.SimLockin {
	return instrument.NewSimLockin(cfg.Lockin.Name)
}

func newStation(log *zap.Logger, store *settings.Store, source instrument.VoltageSource) *station.Station {
	return station.New(log.Named("station"), store, source)
}

func newOutputs(cfg Config, log *zap.Logger) ([]output.Output, error) {
	var outs []output.Output
	if cfg.Outputs.Console {
		outs = append(outs, output.NewConsole(log.Named("samples")))
	}
	if cfg.Outputs.MQTT != nil {
		m, err := output.NewMQTT(*cfg.Outputs.MQTT)
		if err != nil {
			return nil, err
		}
		outs = append(outs, m)
	}
	return outs, nil
}

func newMonitor(cfg Config, log *zap.Logger, outs []output.Output) *station.Monitor {
	return station.NewMonitor(station.MonitorOpts{
		Namespace:  cfg.Monitor.Namespace,
		SampleRate: cfg.Monitor.SampleRate,
		Outputs:    outs,
		Logger:     log.Named("monitor"),
	})
}

func newHandler(store *settings.Store) http.Handler {
	return httpserver.Routes(store, prometheus.DefaultGatherer)
}

// runStation assembles the derived measurements from the settings file and
// hooks the monitor into the application lifecycle.
func runStation(
	lc fx.Lifecycle,
	log *zap.Logger,
	cfg Config,
	st *station.Station,
	lockin *instrument.SimLockin,
	mon *station.Monitor,
	outs []output.Output,
) error {
	store := st.Store()

	gainValue, err := store.Float(station.SectionGains, "iv topo gain")
	if err != nil {
		return fmt.Errorf("iv topo gain: %w", err)
	}
	gain := param.NewManual("iv topo gain", "V/A")
	gain.SetValidator(param.OneOf{1e5, 1e6, 1e7, 1e8, 1e9})
	if err := gain.Set(gainValue); err != nil {
		return fmt.Errorf("iv topo gain: %w", err)
	}

	acFactor, err := store.Float(station.SectionGains, "ac factor topo")
	if err != nil {
		return fmt.Errorf("ac factor topo: %w", err)
	}
	excitation, err := param.NewVoltageDivider(lockin.Amplitude(), acFactor)
	if err != nil {
		return fmt.Errorf("ac excitation divider: %w", err)
	}
	if v := float64(cfg.Lockin.Excitation); v != 0 {
		if err := excitation.Set(v); err != nil {
			return fmt.Errorf("setting excitation: %w", err)
		}
	}

	mon.Add("topo conductance", "e^2/h", measure.Conductance{
		Lockin:     lockin,
		Gain:       gain,
		Excitation: excitation,
	})
	mon.Add("topo resistance", "Ohm", measure.Resistance{
		Lockin:     lockin,
		Gain:       gain,
		Excitation: excitation,
	})

	if cfg.Interlocks != nil {
		locks, err := interlock.New(*cfg.Interlocks, log.Named("interlock"), prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		lc.Append(fx.Hook{
			OnStart: locks.Start,
			OnStop: func(ctx context.Context) error {
				locks.Stop(ctx)
				return nil
			},
		})
	}

	if cfg.ADC != nil {
		adc, err := instrument.OpenADS1115(*cfg.ADC)
		if err != nil {
			return fmt.Errorf("opening ADC: %w", err)
		}
		current, err := measure.NewCurrent(adc, gainValue, measure.Picoamps)
		if err != nil {
			return err
		}
		mon.Add("dc current", "pA", current)
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return adc.Close() },
		})
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			channels, err := st.Channels()
			if err != nil {
				return err
			}
			setters := make(map[int]param.Setter, len(channels))
			for ch, p := range channels {
				setters[ch] = p
			}
			if err := st.SetRanges(setters); err != nil {
				return err
			}

			if _, err := st.CheckUnused(); err != nil {
				return err
			}

			return mon.Start()
		},
		OnStop: func(context.Context) error {
			mon.Stop()
			for _, out := range outs {
				if err := out.Close(); err != nil {
					log.Warn("closing output", zap.Error(err))
				}
			}
			return nil
		},
	})
	return nil
}
