// Package crossfade blends the two playback decks of the on-air engine.
//
// The blend is described by a single position in [-1, 1]: -1 is deck A
// alone, +1 is deck B alone. Relative to the current outgoing deck the
// position maps to a progress in [0, 1], and each cycle mixes
//
//	out * GainOut(outCurve, progress) + in * GainIn(inCurve, progress)
//
// A [Controller] is driven from two sides. Command methods ([Controller.SetManual],
// [Controller.TriggerTimedFade], [Controller.Force]) may be called from any
// goroutine; they post into a single-slot mailbox where the latest command
// wins. [Controller.Mix] runs on the audio goroutine, consumes the mailbox
// at the start of each cycle and never blocks or allocates.
package crossfade

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-onair/dsp/core"
	"github.com/cwbudde/algo-onair/dsp/curve"
)

const (
	defaultEventBuffer = 64

	// autoHoldMs is how long the outgoing level must stay below the
	// trigger before an auto-level fade starts.
	autoHoldMs   = 250.0
	levelFloorDB = -120.0
)

// ErrInvalidArgument is returned by [NewController] for unusable sizes.
var ErrInvalidArgument = errors.New("crossfade: invalid argument")

type commandKind int

const (
	cmdManual commandKind = iota
	cmdTimed
	cmdForce
)

type command struct {
	kind       commandKind
	position   float64
	dir        Direction
	durationMs float64
}

// Input is one deck's processed audio for a cycle together with its
// transport at the first frame.
type Input struct {
	Left, Right []float64
	Transport   Transport
}

// Option configures a [Controller].
type Option func(*Controller)

// WithEventBuffer sets the capacity of the event channel.
func WithEventBuffer(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.events = make(chan Event, n)
		}
	}
}

// WithConfig sets the initial configuration.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		if cfg.usable() {
			c.cfg = cfg
		}
	}
}

type fade struct {
	active     bool
	start      float64
	elapsed    int64 // frames since the fade began; negative while pending
	frames     int64
	outCurve   curve.Curve
	inCurve    curve.Curve
	outEnabled bool
	inEnabled  bool
}

func (f *fade) progressAt(e int64) float64 {
	if e >= f.frames {
		return 1
	}
	if e <= 0 {
		return f.start
	}
	return f.start + (1-f.start)*float64(e)/float64(f.frames)
}

// gains returns the deck gains at frame e of the fade. Pending frames
// (e < 0) lie before the fade point and keep the static mix of the start
// position, so the enabled flags take effect exactly at the fade point.
func (f *fade) gains(e int64) (gOut, gIn float64) {
	if e < 0 {
		return curve.GainOut(f.outCurve, f.start), curve.GainIn(f.inCurve, f.start)
	}

	q := f.progressAt(e)
	if f.outEnabled {
		gOut = curve.GainOut(f.outCurve, q)
	} else if q < 1 {
		gOut = 1
	}
	gIn = 1
	if f.inEnabled {
		gIn = curve.GainIn(f.inCurve, q)
	}
	return gOut, gIn
}

// Controller owns the crossfade state.
type Controller struct {
	sampleRate float64
	cfg        Config
	holdFrames int64

	mailbox atomic.Pointer[command]
	events  chan Event
	dropped atomic.Uint64

	state    State
	position float64
	outgoing Deck
	fade     fade

	belowFrames    int64
	instantPending bool

	// progress is the event of the running cycle, sent by EndCycle. A
	// completion is never replaced within the cycle.
	progress        Event
	progressPending bool
	completed       bool

	gOut, gIn  []float64
	tmpL, tmpR []float64
}

// NewController creates a controller at position -1 with deck A
// outgoing. maxFrames sizes the internal gain buffers; larger cycles are
// mixed in pieces.
func NewController(sampleRate float64, maxFrames int, opts ...Option) (*Controller, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("%w: sample rate %g", ErrInvalidArgument, sampleRate)
	}
	if maxFrames <= 0 {
		return nil, fmt.Errorf("%w: max frames %d", ErrInvalidArgument, maxFrames)
	}

	c := &Controller{
		sampleRate: sampleRate,
		cfg:        DefaultConfig(),
		holdFrames: core.MsToFrames(autoHoldMs, sampleRate),
		position:   -1,
		outgoing:   DeckA,
		gOut:       make([]float64, maxFrames),
		gIn:        make([]float64, maxFrames),
		tmpL:       make([]float64, maxFrames),
		tmpR:       make([]float64, maxFrames),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.events == nil {
		c.events = make(chan Event, defaultEventBuffer)
	}

	return c, nil
}

// SetManual moves the crossfader to position, cancelling any fade. NaN is
// ignored. Safe for concurrent use.
func (c *Controller) SetManual(position float64) {
	if math.IsNaN(position) {
		return
	}
	c.mailbox.Store(&command{kind: cmdManual, position: position})
}

// TriggerTimedFade starts a fade in dir lasting d from the current
// position. Safe for concurrent use.
func (c *Controller) TriggerTimedFade(dir Direction, d time.Duration) {
	c.mailbox.Store(&command{kind: cmdTimed, dir: dir, durationMs: float64(d) / float64(time.Millisecond)})
}

// Force starts an operator fade whose direction is chosen by
// [ResolveForceDirection] at the next cycle. Safe for concurrent use.
func (c *Controller) Force() {
	c.mailbox.Store(&command{kind: cmdForce})
}

// Events returns the event channel. Events are dropped when it is full.
func (c *Controller) Events() <-chan Event { return c.events }

// Dropped returns the number of events lost to a full channel.
func (c *Controller) Dropped() uint64 { return c.dropped.Load() }

// SetConfig replaces the configuration. Configurations the controller
// cannot run with are ignored and false is returned. A running fade keeps
// the curves and duration it started with.
func (c *Controller) SetConfig(cfg Config) bool {
	if !cfg.usable() {
		return false
	}
	c.cfg = cfg
	return true
}

// Config returns the active configuration.
func (c *Controller) Config() Config { return c.cfg }

// State returns the controller state.
func (c *Controller) State() State { return c.state }

// Position returns the crossfader position.
func (c *Controller) Position() float64 { return c.position }

// Outgoing returns the deck currently on air.
func (c *Controller) Outgoing() Deck { return c.outgoing }

// Progress returns the position relative to the outgoing deck.
func (c *Controller) Progress() float64 {
	if c.outgoing == DeckB {
		return (1 - c.position) / 2
	}
	return (c.position + 1) / 2
}

func (c *Controller) setProgress(q float64) {
	if c.outgoing == DeckB {
		c.position = 1 - 2*q
	} else {
		c.position = 2*q - 1
	}
}

// Mix runs one cycle: it consumes the pending command, advances
// monitoring and fades, and writes the blend of a and b to dstL/dstR.
// dst may alias either input. All slices must be at least len(dstL) long.
func (c *Controller) Mix(dstL, dstR []float64, a, b Input) {
	c.BeginCycle()
	c.MixBlock(dstL, dstR, a, b)
	c.EndCycle()
}

// BeginCycle starts a cycle that is mixed in several blocks with
// [Controller.MixBlock]. At most one progress event is sent per cycle, by
// [Controller.EndCycle].
func (c *Controller) BeginCycle() {
	c.progressPending = false
	c.completed = false
}

// MixBlock mixes one block of the current cycle. The transports of a and
// b must be advanced to the start of the block.
func (c *Controller) MixBlock(dstL, dstR []float64, a, b Input) {
	n := len(dstL)
	dstR = dstR[:n]
	c.instantPending = false

	if cmd := c.mailbox.Swap(nil); cmd != nil {
		c.handle(cmd, a.Transport, b.Transport)
	}

	out, in := &a, &b
	if c.outgoing == DeckB {
		out, in = &b, &a
	}

	c.monitor(out, in, n)
	c.render(dstL, dstR, out, in)
	c.finishBlock()
}

// EndCycle sends the progress event of the cycle, if any.
func (c *Controller) EndCycle() {
	if c.progressPending {
		c.progressPending = false
		c.emit(c.progress)
	}
}

func (c *Controller) handle(cmd *command, ta, tb Transport) {
	switch cmd.kind {
	case cmdManual:
		c.fade = fade{}
		c.belowFrames = 0
		c.state = StateManualDrag
		c.position = core.Clamp(cmd.position, -1, 1)
		c.emit(Event{
			Kind:     EventManualChanged,
			Outgoing: c.outgoing,
			Incoming: c.outgoing.Other(),
			Progress: c.Progress(),
			Position: c.position,
			State:    c.state,
		})

		switch q := c.Progress(); {
		case q >= 1:
			c.complete()
		case q <= 0:
			c.state = StateIdle
		}

	case cmdTimed:
		c.startFade(cmd.dir, cmd.durationMs, 0)

	case cmdForce:
		dir := ResolveForceDirection(c.outgoing, ta, tb)
		ms := c.cfg.FadeTimeMs()
		if c.cfg.Mode == ModeInstant || ms <= 0 {
			c.outgoing = dir.From()
			c.complete()
			return
		}
		c.startFade(dir, ms, 0)
	}
}

// monitor runs the automatic trigger of the configured mode. It is only
// active while no fade or manual drag is in progress.
func (c *Controller) monitor(out, in *Input, n int) {
	switch c.state {
	case StateIdle, StateAutoDetect, StateFixedPoint, StateInstant:
	default:
		return
	}

	if out.Transport.State != TransportPlaying || !in.Transport.State.cued() {
		c.state = StateIdle
		c.belowFrames = 0
		return
	}

	switch c.cfg.Mode {
	case ModeAutoLevel:
		c.state = StateAutoDetect
		c.autoDetect(out, n)
	case ModeFixedPoint:
		c.state = StateFixedPoint
		c.fixedPoint(out, n)
	case ModeInstant:
		c.state = StateInstant
		c.instantPending = out.Transport.Remaining() <= FramesToDuration(int64(n), c.sampleRate)
	}
}

func (c *Controller) autoDetect(out *Input, n int) {
	remaining := out.Transport.Remaining()
	if remaining > msToDuration(c.cfg.AutoMaxMs) {
		c.belowFrames = 0
		return
	}

	level := core.PowerToDB(core.MeanSquare(out.Left[:n], out.Right[:n]), levelFloorDB)
	if level < c.cfg.AutoTriggerDB {
		c.belowFrames += int64(n)
	} else {
		c.belowFrames = 0
	}

	if c.belowFrames >= c.holdFrames || remaining <= msToDuration(c.cfg.AutoMinMs) {
		ms := core.Clamp(float64(remaining)/float64(time.Millisecond), c.cfg.AutoMinMs, c.cfg.AutoMaxMs)
		// The decision uses this cycle's audio, so the fade begins with
		// the next one.
		c.startFade(DirectionFrom(c.outgoing), ms, int64(n))
	}
}

func (c *Controller) fixedPoint(out *Input, n int) {
	t := out.Transport
	startAt := max(t.Duration-msToDuration(c.cfg.FixedPointMs), 0)
	offset := framesUntil(startAt-t.Elapsed, c.sampleRate)
	if offset < int64(n) {
		c.startFade(DirectionFrom(c.outgoing), c.cfg.FixedPointMs, offset)
	}
}

// startFade begins a fade in dir from the current position, offset frames
// into the current cycle.
func (c *Controller) startFade(dir Direction, ms float64, offset int64) {
	c.outgoing = dir.From()
	c.fade = fade{
		active:     true,
		start:      core.Clamp(c.Progress(), 0, 1),
		elapsed:    -offset,
		frames:     max(core.MsToFrames(ms, c.sampleRate), 1),
		outCurve:   c.cfg.FadeOutCurve,
		inCurve:    c.cfg.FadeInCurve,
		outEnabled: c.cfg.FadeOutEnabled,
		inEnabled:  c.cfg.FadeInEnabled,
	}
	c.state = StateTimedFade
	c.belowFrames = 0
}

// complete hands the air to the incoming deck.
func (c *Controller) complete() {
	from := c.outgoing
	to := from.Other()

	c.outgoing = to
	c.position = to.endpoint()
	c.fade = fade{}
	c.state = StateIdle
	c.belowFrames = 0

	c.emitProgress(from, to, 1)
	c.completed = true
}

func (c *Controller) render(dstL, dstR []float64, out, in *Input) {
	n := len(dstL)
	chunk := len(c.gOut)

	if !c.fade.active {
		q := c.Progress()
		gOut := curve.GainOut(c.cfg.FadeOutCurve, q)
		gIn := curve.GainIn(c.cfg.FadeInCurve, q)
		for off := 0; off < n; off += chunk {
			end := min(off+chunk, n)
			m := end - off
			vecmath.ScaleBlock(c.tmpL[:m], in.Left[off:end], gIn)
			vecmath.ScaleBlock(c.tmpR[:m], in.Right[off:end], gIn)
			vecmath.ScaleBlock(dstL[off:end], out.Left[off:end], gOut)
			vecmath.ScaleBlock(dstR[off:end], out.Right[off:end], gOut)
			vecmath.AddBlockInPlace(dstL[off:end], c.tmpL[:m])
			vecmath.AddBlockInPlace(dstR[off:end], c.tmpR[:m])
		}
		return
	}

	for off := 0; off < n; off += chunk {
		end := min(off+chunk, n)
		m := end - off
		gOut, gIn := c.gOut[:m], c.gIn[:m]
		for i := range gOut {
			gOut[i], gIn[i] = c.fade.gains(c.fade.elapsed + int64(i))
		}
		c.fade.elapsed += int64(m)

		vecmath.MulBlock(c.tmpL[:m], in.Left[off:end], gIn)
		vecmath.MulBlock(c.tmpR[:m], in.Right[off:end], gIn)
		vecmath.MulBlock(dstL[off:end], out.Left[off:end], gOut)
		vecmath.MulBlock(dstR[off:end], out.Right[off:end], gOut)
		vecmath.AddBlockInPlace(dstL[off:end], c.tmpL[:m])
		vecmath.AddBlockInPlace(dstR[off:end], c.tmpR[:m])
	}
}

func (c *Controller) finishBlock() {
	switch {
	case c.fade.active:
		if c.fade.elapsed >= c.fade.frames {
			c.complete()
			return
		}
		c.setProgress(c.fade.progressAt(c.fade.elapsed))
		c.emitProgress(c.outgoing, c.outgoing.Other(), c.Progress())
	case c.instantPending:
		c.complete()
	case c.state == StateManualDrag:
		c.emitProgress(c.outgoing, c.outgoing.Other(), c.Progress())
	}
}

func (c *Controller) emitProgress(out, in Deck, q float64) {
	if c.completed {
		return
	}
	c.progressPending = true
	c.progress = Event{
		Kind:     EventProgress,
		Outgoing: out,
		Incoming: in,
		Progress: q,
		Position: c.position,
		State:    c.state,
	}
}

func (c *Controller) emit(e Event) {
	select {
	case c.events <- e:
	default:
		c.dropped.Add(1)
	}
}
