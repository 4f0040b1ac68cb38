// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

// samplectl drives a cryostat sample station: a multi-channel voltage
// source, a lock-in amplifier and the calibration settings file that binds
// them together.  The run subcommand monitors the derived measurements and
// serves them over HTTP; the rest are one-shot maintenance commands.
package main

import (
	"github.com/alecthomas/kong"
)

type Globals struct {
	Settings string `short:"s" default:"sample.config" help:"Path to the sample settings file."`
	Config   string `short:"c" default:"station.yaml" help:"Path to the station configuration."`
	Debug    bool   `help:"Enable debug logging."`
}

type CLI struct {
	Globals

	Run      RunCmd      `cmd:"" default:"1" help:"Monitor the station and serve measurements."`
	Get      GetCmd      `cmd:"" help:"Print one value from the settings file."`
	Set      SetCmd      `cmd:"" help:"Write one value to the settings file."`
	Channels ChannelsCmd `cmd:"" help:"List the labelled source channels."`
	Voltages VoltagesCmd `cmd:"" help:"Print the present voltage of every labelled channel."`
	Ramp     RampCmd     `cmd:"" help:"Ramp one source channel to a target voltage."`
	Check    CheckCmd    `cmd:"" help:"Verify unused channels are at zero and the cutters agree."`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("samplectl"),
		kong.Description("Sample station control for the dilution fridge rack."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
