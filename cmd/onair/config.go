package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-onair/config"
	"github.com/cwbudde/algo-onair/dsp/pipeline"
	"github.com/cwbudde/algo-onair/internal/cli"
)

// responseFreqs are the octave centres of the EQ response table.
var responseFreqs = [...]float64{31.5, 63, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// ConfigCmd loads a settings file and prints what the mixer would use.
type ConfigCmd struct {
	File       string  `arg:"" type:"existingfile" help:"YAML settings file."`
	Watch      bool    `short:"w" help:"Keep running and print the settings whenever the file changes."`
	Response   bool    `short:"r" help:"Also print the EQ response of every stored channel with the EQ enabled."`
	SampleRate float64 `name:"sample-rate" default:"48000" help:"Sample rate of the EQ response."`
}

func (c *ConfigCmd) Run(g *Globals) error {
	store := config.NewStore(config.WithLogger(g.logger))
	if err := store.LoadFile(c.File); err != nil {
		return err
	}
	if err := c.print(store.Snapshot()); err != nil {
		return err
	}
	if !c.Watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cancel := store.Subscribe(func(version uint64) {
		if err := c.print(store.Snapshot()); err != nil {
			g.logger.Error().Err(err).Uint64("version", version).Msg("print settings")
		}
	})
	defer cancel()

	return store.Watch(ctx, c.File)
}

func (c *ConfigCmd) print(s *config.Snapshot) error {
	if err := printSnapshot(s); err != nil {
		return err
	}
	if !c.Response {
		return nil
	}
	return printResponse(s, c.SampleRate)
}

func printSnapshot(s *config.Snapshot) error {
	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	fmt.Printf("# version %d\n%s---\n", s.Version, out)
	return nil
}

func printResponse(s *config.Snapshot, sampleRate float64) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, ch := range slices.Sorted(maps.Keys(s.Pipelines)) {
		settings := s.Pipelines[ch]
		if !settings.EQ.Enabled {
			continue
		}
		p, err := pipeline.New(sampleRate)
		if err != nil {
			return err
		}
		if err := p.Apply(settings); err != nil {
			return fmt.Errorf("%s: %w", ch, err)
		}

		fmt.Println(cli.TitleStyle.Render(string(ch) + " eq"))
		fmt.Fprintln(w, "hz\tdB\t")
		for _, hz := range responseFreqs {
			if hz >= sampleRate/2 {
				break
			}
			fmt.Fprintf(w, "%g\t%+.2f\t\n", hz, p.EQResponseDB(hz))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}
