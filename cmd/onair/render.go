package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-onair/config"
	"github.com/cwbudde/algo-onair/gateway"
	"github.com/cwbudde/algo-onair/internal/cli"
	"github.com/cwbudde/algo-onair/internal/render"
	"github.com/cwbudde/algo-onair/internal/ui"
	"github.com/cwbudde/algo-onair/internal/wavio"
)

// RenderCmd crossfades deck A into deck B and writes the bus to a WAV file.
type RenderCmd struct {
	DeckA string `arg:"" name:"deck-a" type:"existingfile" help:"Track on deck A, on air first. WAV, AIFF, MP3 or Ogg Vorbis."`
	DeckB string `arg:"" name:"deck-b" type:"existingfile" help:"Track cued on deck B, resampled to deck A's rate."`

	Output    string        `short:"o" type:"path" default:"mix.wav" help:"Output WAV file."`
	Config    string        `short:"c" type:"existingfile" help:"YAML settings file."`
	ForceAt   time.Duration `name:"force-at" help:"Force a crossfade at this bus time."`
	Manual    *float64      `help:"Park the crossfader at this position, -1 for deck A and 1 for deck B. Use --manual=-1 for negative values."`
	BlockSize int           `name:"block-size" default:"480" help:"Frames per processing cycle."`
	Dither    bool          `negatable:"" default:"true" help:"Apply TPDF dither when writing 16-bit output."`
	Seed      uint64        `default:"1" help:"Dither noise seed."`
	NoTUI     bool          `name:"no-tui" help:"Log progress instead of showing the terminal UI."`
}

func (r *RenderCmd) Run(g *Globals) error {
	log := g.logger
	if !r.NoTUI {
		// Log lines would tear the terminal UI.
		log = log.Level(zerolog.ErrorLevel)
	}

	a, err := wavio.Load(r.DeckA)
	if err != nil {
		return fmt.Errorf("deck A: %w", err)
	}
	b, err := wavio.Load(r.DeckB)
	if err != nil {
		return fmt.Errorf("deck B: %w", err)
	}

	store := config.NewStore(config.WithLogger(log))
	if r.Config != "" {
		if err := store.LoadFile(r.Config); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := render.Job{
		DeckA:     a,
		DeckB:     b,
		Store:     store,
		BlockSize: r.BlockSize,
		ForceAt:   r.ForceAt,
		Manual:    r.Manual,
		Logger:    log,
	}

	if r.NoTUI {
		return r.runPlain(ctx, job, log)
	}
	return r.runTUI(ctx, stop, job)
}

func (r *RenderCmd) write(res *render.Result) error {
	if err := wavio.Write(r.Output, res.Out, wavio.NewQuantizer(r.Seed, r.Dither)); err != nil {
		return fmt.Errorf("write %s: %w", r.Output, err)
	}
	return nil
}

func (r *RenderCmd) runPlain(ctx context.Context, job render.Job, log zerolog.Logger) error {
	job.Notify = func(n gateway.Notification) {
		log.Debug().Str("event", n.Kind).Float64("progress", n.Progress).Str("state", n.State).Msg("crossfade")
	}
	res, err := render.Run(ctx, job, func(p render.Progress) {
		log.Info().
			Int("frame", p.Frame).
			Float64("position", p.Position).
			Str("on_air", string(p.Outgoing)).
			Str("state", p.State).
			Float64("peak_db", p.Level.PeakDB).
			Float64("reduction_db", p.ReductionDB).
			Msg("progress")
	})
	if err != nil {
		return err
	}
	if err := r.write(res); err != nil {
		return err
	}

	fmt.Println(cli.TitleStyle.Render("onair"))
	fmt.Println(cli.KeyValue("output", r.Output))
	fmt.Println(cli.KeyValue("length", time.Duration(int64(res.Out.Frames())*int64(time.Second)/int64(res.Out.SampleRate)).Truncate(time.Millisecond)))
	fmt.Println(cli.KeyValue("peak", fmt.Sprintf("%.1f dBFS", res.Level.PeakDB)))
	fmt.Println(cli.KeyValue("rms", fmt.Sprintf("%.1f dBFS", res.Level.RMSDB)))
	fmt.Println(cli.KeyValue("latency", fmt.Sprintf("%d frames", res.Latency)))
	if res.Level.Clipped > 0 {
		fmt.Println(cli.KeyValue("clipped", res.Level.Clipped))
	}
	return nil
}

func (r *RenderCmd) runTUI(ctx context.Context, cancel context.CancelFunc, job render.Job) error {
	p := tea.NewProgram(ui.NewModel())

	done := make(chan error, 1)
	job.Notify = func(n gateway.Notification) { p.Send(ui.NotificationMsg{Notification: n}) }
	go func() {
		p.Send(ui.RenderStartMsg{DeckA: r.DeckA, DeckB: r.DeckB, Output: r.Output, SampleRate: job.DeckA.SampleRate})

		res, err := render.Run(ctx, job, func(pr render.Progress) { p.Send(ui.ProgressMsg{Progress: pr}) })
		if err == nil {
			err = r.write(res)
		}
		msg := ui.CompleteMsg{Err: err}
		if res != nil {
			msg.Frames = res.Out.Frames()
			msg.Level = res.Level
		}
		done <- err
		p.Send(msg)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return err
	}
	// Quitting the UI early stops the render.
	cancel()
	return <-done
}
