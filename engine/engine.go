// Package engine runs the audio cycle of the on-air mixer.
//
// An [Engine] owns one processing pipeline per channel and the crossfade
// controller. Control code publishes immutable configuration snapshots with
// [Engine.Publish]; the audio goroutine picks up the latest one at the start
// of [Engine.Process]. Process never blocks, never allocates and never
// fails: settings a pipeline cannot run with are skipped and the previous
// ones stay active.
package engine

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-onair/config"
	"github.com/cwbudde/algo-onair/crossfade"
	"github.com/cwbudde/algo-onair/dsp/core"
	"github.com/cwbudde/algo-onair/dsp/pipeline"
)

// ErrDuplicateChannel is returned by [New] when an aux channel is listed
// twice or names a deck or the master.
var ErrDuplicateChannel = errors.New("engine: duplicate or reserved channel")

// Source is the audio of one channel for a cycle. Slices shorter than the
// output are padded with silence.
type Source struct {
	Channel     config.ChannelID
	Left, Right []float64
}

// Cycle holds the inputs of one audio cycle.
type Cycle struct {
	DeckA, DeckB crossfade.Input
	Aux          []Source
}

// Block is a stereo output buffer.
type Block struct {
	Left, Right []float64
}

// Params describes the channels an engine mixes.
type Params struct {
	// Aux lists the channels summed onto the bus after the crossfade.
	// Nil means every aux channel of [config.DefaultChannels].
	Aux []config.ChannelID

	// EventBuffer is the capacity of the progress event channel.
	EventBuffer int

	// Logger receives construction messages. The zero value discards.
	Logger zerolog.Logger
}

type stereo struct {
	left, right []float64
}

func newStereo(n int) stereo {
	return stereo{left: make([]float64, n), right: make([]float64, n)}
}

type auxChannel struct {
	id       config.ChannelID
	pipeline *pipeline.Pipeline
	buf      stereo
}

// Engine mixes the decks and aux channels into the output bus.
type Engine struct {
	sampleRate float64
	blockSize  int

	snapshot atomic.Pointer[config.Snapshot]
	current  *config.Snapshot
	rejected atomic.Uint64

	deckA, deckB *pipeline.Pipeline
	master       *pipeline.Pipeline
	aux          []auxChannel
	controller   *crossfade.Controller

	bufA, bufB stereo
}

// New creates an engine running on defaults until the first snapshot is
// published. The sample rate and maximum cycle length come from opts.
func New(params Params, opts ...core.ProcessorOption) (*Engine, error) {
	cfg := core.ApplyProcessorOptions(opts...)

	aux := params.Aux
	if aux == nil {
		for _, ch := range config.DefaultChannels() {
			if ch.Kind() == config.KindAux {
				aux = append(aux, ch)
			}
		}
	}

	e := &Engine{
		sampleRate: cfg.SampleRate,
		blockSize:  cfg.BlockSize,
		bufA:       newStereo(cfg.BlockSize),
		bufB:       newStereo(cfg.BlockSize),
	}

	var err error
	if e.deckA, err = pipeline.New(cfg.SampleRate); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if e.deckB, err = pipeline.New(cfg.SampleRate); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if e.master, err = pipeline.New(cfg.SampleRate); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	for i, id := range aux {
		if id.Kind() != config.KindAux || slices.Contains(aux[:i], id) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateChannel, id)
		}
		p, err := pipeline.New(cfg.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.aux = append(e.aux, auxChannel{id: id, pipeline: p, buf: newStereo(cfg.BlockSize)})
	}

	ctrlOpts := []crossfade.Option{crossfade.WithConfig(config.DefaultCrossfadeConfig())}
	if params.EventBuffer > 0 {
		ctrlOpts = append(ctrlOpts, crossfade.WithEventBuffer(params.EventBuffer))
	}
	if e.controller, err = crossfade.NewController(cfg.SampleRate, cfg.BlockSize, ctrlOpts...); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	// Channels without a stored record start from their defaults.
	defaults := &config.Snapshot{Crossfade: config.DefaultCrossfadeConfig()}
	e.applyPipelines(defaults)

	params.Logger.Debug().
		Str("component", "engine").
		Float64("sample_rate", cfg.SampleRate).
		Int("block_size", cfg.BlockSize).
		Int("aux_channels", len(e.aux)).
		Msg("engine created")

	return e, nil
}

// SampleRate returns the processing sample rate.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// BlockSize returns the number of frames processed per pass. Longer cycles
// are split.
func (e *Engine) BlockSize() int { return e.blockSize }

// Controller returns the crossfade controller. Its command methods are safe
// to call from any goroutine.
func (e *Engine) Controller() *crossfade.Controller { return e.controller }

// SetManual moves the crossfader. See [crossfade.Controller.SetManual].
func (e *Engine) SetManual(position float64) { e.controller.SetManual(position) }

// TriggerTimedFade starts a timed fade at the next cycle.
func (e *Engine) TriggerTimedFade(dir crossfade.Direction, d time.Duration) {
	e.controller.TriggerTimedFade(dir, d)
}

// Force starts an operator fade at the next cycle.
func (e *Engine) Force() { e.controller.Force() }

// Events returns the progress event channel of the controller.
func (e *Engine) Events() <-chan crossfade.Event { return e.controller.Events() }

// Aux returns the aux channels in mixing order.
func (e *Engine) Aux() []config.ChannelID {
	ids := make([]config.ChannelID, len(e.aux))
	for i, a := range e.aux {
		ids[i] = a.id
	}
	return ids
}

// Latency returns the processing delay of the deck path in frames.
func (e *Engine) Latency() int {
	return max(e.deckA.Latency(), e.deckB.Latency()) + e.master.Latency()
}

// Publish hands s to the audio cycle. The snapshot must not be modified
// afterwards. Nil is ignored. Safe for concurrent use.
func (e *Engine) Publish(s *config.Snapshot) {
	if s != nil {
		e.snapshot.Store(s)
	}
}

// Applied returns the version of the snapshot the last cycle ran with, or
// 0 before the first one. Only valid on the audio goroutine.
func (e *Engine) Applied() uint64 {
	if e.current == nil {
		return 0
	}
	return e.current.Version
}

// Rejected returns how many records the pipelines or the controller
// refused since the engine was created.
func (e *Engine) Rejected() uint64 { return e.rejected.Load() }

// Process runs one cycle and writes len(out.Left) frames to out.
func (e *Engine) Process(cycle *Cycle, out Block) {
	n := len(out.Left)
	out.Right = out.Right[:n]

	if s := e.snapshot.Load(); s != nil && s != e.current {
		e.current = s
		e.applyPipelines(s)
		if !e.controller.SetConfig(s.Crossfade) {
			e.rejected.Add(1)
		}
	}

	e.controller.BeginCycle()
	for off := 0; off < n; off += e.blockSize {
		end := min(off+e.blockSize, n)
		e.processBlock(cycle, out.Left[off:end], out.Right[off:end], off)
	}
	e.controller.EndCycle()
}

func (e *Engine) processBlock(cycle *Cycle, dstL, dstR []float64, off int) {
	m := len(dstL)
	a := e.bufA.fill(cycle.DeckA.Left, cycle.DeckA.Right, off, m)
	b := e.bufB.fill(cycle.DeckB.Left, cycle.DeckB.Right, off, m)

	e.deckA.Process(a.left, a.right)
	e.deckB.Process(b.left, b.right)

	e.controller.MixBlock(dstL, dstR,
		crossfade.Input{Left: a.left, Right: a.right, Transport: cycle.DeckA.Transport.Advance(off, e.sampleRate)},
		crossfade.Input{Left: b.left, Right: b.right, Transport: cycle.DeckB.Transport.Advance(off, e.sampleRate)},
	)

	for i := range cycle.Aux {
		src := &cycle.Aux[i]
		ch := e.auxChannel(src.Channel)
		if ch == nil {
			continue
		}
		buf := ch.buf.fill(src.Left, src.Right, off, m)
		ch.pipeline.Process(buf.left, buf.right)
		core.AddInto(dstL, buf.left)
		core.AddInto(dstR, buf.right)
	}

	e.master.Process(dstL, dstR)
}

// GainReductionDB returns the compressor gain reduction of ch since the
// previous call, in dB. Unknown channels report 0. Only valid on the audio
// goroutine.
func (e *Engine) GainReductionDB(ch config.ChannelID) float64 {
	if p := e.pipeline(ch); p != nil {
		return p.GainReductionDB()
	}
	return 0
}

func (e *Engine) pipeline(ch config.ChannelID) *pipeline.Pipeline {
	switch ch {
	case config.DeckA:
		return e.deckA
	case config.DeckB:
		return e.deckB
	case config.Master:
		return e.master
	}
	if a := e.auxChannel(ch); a != nil {
		return a.pipeline
	}
	return nil
}

func (e *Engine) auxChannel(id config.ChannelID) *auxChannel {
	for i := range e.aux {
		if e.aux[i].id == id {
			return &e.aux[i]
		}
	}
	return nil
}

func (e *Engine) applyPipelines(s *config.Snapshot) {
	e.apply(e.deckA, s.Pipeline(config.DeckA))
	e.apply(e.deckB, s.Pipeline(config.DeckB))
	e.apply(e.master, s.Pipeline(config.Master))
	for i := range e.aux {
		e.apply(e.aux[i].pipeline, s.Pipeline(e.aux[i].id))
	}
}

func (e *Engine) apply(p *pipeline.Pipeline, s pipeline.Settings) {
	if err := p.Apply(s); err != nil {
		e.rejected.Add(1)
	}
}

// fill copies frames [off, off+m) of left and right into the buffer and
// returns the m-frame view. Missing samples are zero.
func (s stereo) fill(left, right []float64, off, m int) stereo {
	v := stereo{left: s.left[:m], right: s.right[:m]}
	fillChannel(v.left, left, off)
	fillChannel(v.right, right, off)
	return v
}

func fillChannel(dst, src []float64, off int) {
	k := 0
	if off < len(src) {
		k = copy(dst, src[off:])
	}
	core.Zero(dst[k:])
}
