// Command onair crossfades audio files offline through the on-air mixing
// engine and inspects its settings.
//
// Usage:
//
//	onair render deck_a.wav deck_b.wav -o mix.wav
//	onair render --config settings.yaml --force-at 30s a.wav b.wav
//	onair curves --steps 21
//	onair config settings.yaml --watch
package main

import (
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-onair/internal/cli"
)

var version = "0.1.0"

// Globals are the flags shared by all commands.
type Globals struct {
	LogLevel string `help:"Log level." default:"info" enum:"debug,info,warn,error"`

	logger zerolog.Logger
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Render  RenderCmd  `cmd:"" help:"Crossfade two tracks into one WAV file."`
	Curves  CurvesCmd  `cmd:"" help:"Print the gain tables of the fade curves."`
	Config  ConfigCmd  `cmd:"" help:"Validate a settings file and print the normalized settings."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

func main() {
	var c CLI
	ctx := kong.Parse(&c,
		kong.Name("onair"),
		kong.Description("Broadcast crossfade and channel processing"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	c.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()

	if err := ctx.Run(&c.Globals); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (VersionCmd) Run() error {
	cli.PrintVersion(version)
	return nil
}
