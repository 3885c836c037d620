// Package render drives the engine offline: it plays two decoded files on
// the decks, runs the audio cycle block by block and collects the bus.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-onair/config"
	"github.com/cwbudde/algo-onair/crossfade"
	"github.com/cwbudde/algo-onair/dsp/core"
	"github.com/cwbudde/algo-onair/engine"
	"github.com/cwbudde/algo-onair/gateway"
	"github.com/cwbudde/algo-onair/internal/meter"
	"github.com/cwbudde/algo-onair/internal/wavio"
)

// ErrEmptyDeck is returned when a deck has no audio.
var ErrEmptyDeck = errors.New("render: deck has no audio")

const progressEvery = 20

// Job describes one offline render.
type Job struct {
	DeckA, DeckB *wavio.Stereo
	Store        *config.Store
	BlockSize    int

	// ForceAt forces a crossfade at this bus time. Zero disables it.
	ForceAt time.Duration
	// Manual, when set, parks the crossfader at this position.
	Manual *float64

	// Notify, when set, receives every crossfade notification. It is
	// called from a separate goroutine.
	Notify func(gateway.Notification)

	Logger zerolog.Logger
}

// Progress is reported periodically while rendering.
type Progress struct {
	Frame, Total int
	SampleRate   int
	Position     float64
	Outgoing     config.ChannelID
	State        string
	Level        meter.Reading
	// ReductionDB is the deepest compressor gain reduction on the on-air
	// deck since the previous report.
	ReductionDB float64
}

// Result is a finished render.
type Result struct {
	Out           *wavio.Stereo
	Level         meter.Reading
	Notifications int
	Latency       int
}

type deck struct {
	audio   *wavio.Stereo
	cursor  int
	started bool
}

func (d *deck) transport(sampleRate int) crossfade.Transport {
	t := crossfade.Transport{
		State:    crossfade.TransportReady,
		Elapsed:  crossfade.FramesToDuration(int64(d.cursor), float64(sampleRate)),
		Duration: crossfade.FramesToDuration(int64(d.audio.Frames()), float64(sampleRate)),
	}
	switch {
	case d.cursor >= d.audio.Frames():
		t.State = crossfade.TransportStopped
	case d.started:
		t.State = crossfade.TransportPlaying
	}
	return t
}

func (d *deck) input(sampleRate int) crossfade.Input {
	in := crossfade.Input{Transport: d.transport(sampleRate)}
	if in.Transport.State == crossfade.TransportPlaying {
		in.Left = d.audio.Left[d.cursor:]
		in.Right = d.audio.Right[d.cursor:]
	}
	return in
}

func (d *deck) advance(n int) {
	if d.started {
		d.cursor = min(d.cursor+n, d.audio.Frames())
	}
}

func (d *deck) finished() bool { return d.cursor >= d.audio.Frames() }

// Run renders job. progress, when non-nil, is called from the rendering
// goroutine.
func Run(ctx context.Context, job Job, progress func(Progress)) (*Result, error) {
	if job.DeckA == nil || job.DeckA.Frames() == 0 || job.DeckB == nil || job.DeckB.Frames() == 0 {
		return nil, ErrEmptyDeck
	}
	rate := job.DeckA.SampleRate
	deckB, err := wavio.Resample(job.DeckB, rate)
	if err != nil {
		return nil, fmt.Errorf("render: deck B: %w", err)
	}
	store := job.Store
	if store == nil {
		store = config.NewStore()
	}
	log := job.Logger.With().Str("component", "render").Logger()

	opts := []core.ProcessorOption{core.WithSampleRate(float64(rate))}
	if job.BlockSize > 0 {
		opts = append(opts, core.WithBlockSize(job.BlockSize))
	}
	eng, err := engine.New(engine.Params{Aux: []config.ChannelID{}, EventBuffer: 256, Logger: job.Logger}, opts...)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	gw := gateway.New(store, eng, gateway.WithCommitInterval(0), gateway.WithLogger(job.Logger))
	defer gw.Close()

	notes, cancelNotes := gw.Subscribe(1024)
	runCtx, stop := context.WithCancel(ctx)
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = gw.Run(runCtx)
	}()
	counted := make(chan int, 1)
	go func() {
		n := 0
		for note := range notes {
			n++
			if job.Notify != nil {
				job.Notify(note)
			}
		}
		counted <- n
	}()
	finish := func() {
		stop()
		<-runDone
		cancelNotes()
	}

	if job.Manual != nil {
		if err := gw.SetManualCrossfade(*job.Manual); err != nil {
			finish()
			return nil, err
		}
	}

	a := &deck{audio: job.DeckA, started: true}
	b := &deck{audio: deckB}
	ctrl := eng.Controller()

	block := eng.BlockSize()
	limit := a.audio.Frames() + b.audio.Frames() + rate
	forceAt := -1
	if job.ForceAt > 0 {
		forceAt = int(job.ForceAt.Seconds() * float64(rate))
	}

	outL := make([]float64, 0, limit)
	outR := make([]float64, 0, limit)
	bufL := make([]float64, block)
	bufR := make([]float64, block)
	var level meter.Meter
	forced := false

	for frame, cycles := 0, 0; frame < limit; cycles++ {
		if err := ctx.Err(); err != nil {
			finish()
			return nil, err
		}

		if !forced && forceAt >= 0 && frame >= forceAt {
			forced = true
			_ = gw.ForceCrossfade()
			log.Debug().Int("frame", frame).Msg("forced crossfade")
		}

		eng.Process(&engine.Cycle{DeckA: a.input(rate), DeckB: b.input(rate)}, engine.Block{Left: bufL, Right: bufR})
		a.advance(block)
		b.advance(block)
		// Deck B is cued until the crossfader first opens it.
		if ctrl.Outgoing() == crossfade.DeckB || ctrl.Progress() > 0 {
			b.started = true
		}

		outL = append(outL, bufL...)
		outR = append(outR, bufR...)
		level.Update(bufL, bufR)
		frame += block

		if progress != nil && cycles%progressEvery == 0 {
			progress(Progress{
				Frame:       frame,
				Total:       a.audio.Frames() + b.audio.Frames(),
				SampleRate:  rate,
				Position:    ctrl.Position(),
				Outgoing:    deckChannel(ctrl.Outgoing()),
				State:       ctrl.State().String(),
				Level:       level.Reading(),
				ReductionDB: eng.GainReductionDB(deckChannel(ctrl.Outgoing())),
			})
		}

		if b.finished() {
			break
		}
	}

	// Let the gateway forward what the last cycles emitted.
	for deadline := time.Now().Add(time.Second); len(eng.Events()) > 0 && time.Now().Before(deadline); {
		time.Sleep(time.Millisecond)
	}
	finish()

	res := &Result{
		Out:           &wavio.Stereo{SampleRate: rate, Left: outL, Right: outR},
		Level:         level.Reading(),
		Notifications: <-counted,
		Latency:       eng.Latency(),
	}
	log.Info().
		Int("frames", len(outL)).
		Float64("peak_db", res.Level.PeakDB).
		Float64("rms_db", res.Level.RMSDB).
		Int("notifications", res.Notifications).
		Msg("render finished")

	return res, nil
}

func deckChannel(d crossfade.Deck) config.ChannelID {
	if d == crossfade.DeckB {
		return config.DeckB
	}
	return config.DeckA
}
