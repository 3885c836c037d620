// Package gateway is the control-plane entry point of the on-air engine.
//
// A [Gateway] validates and stores settings through a [config.Store],
// forwards crossfade commands to the audio side and fans progress events
// out to any number of subscribers. Publication of stored settings to the
// audio side is rate-limited: at most one snapshot per commit interval,
// and the last change of a burst is always published.
package gateway

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-onair/config"
	"github.com/cwbudde/algo-onair/crossfade"
)

// DefaultCommitInterval is the minimum spacing of snapshot publications.
const DefaultCommitInterval = 50 * time.Millisecond

// Mixer is the audio side driven by the gateway. *engine.Engine
// implements it.
type Mixer interface {
	Publish(s *config.Snapshot)
	SetManual(position float64)
	TriggerTimedFade(dir crossfade.Direction, d time.Duration)
	Force()
	Events() <-chan crossfade.Event
}

// Option configures a [Gateway].
type Option func(*Gateway)

// WithLogger sets the command log.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) {
		g.log = l.With().Str("component", "gateway").Logger()
	}
}

// WithCommitInterval sets the minimum spacing of snapshot publications.
// Non-positive values publish every change immediately.
func WithCommitInterval(d time.Duration) Option {
	return func(g *Gateway) {
		g.interval = max(d, 0)
	}
}

// Gateway serves control commands. It is safe for concurrent use.
type Gateway struct {
	store    *config.Store
	mixer    Mixer
	log      zerolog.Logger
	interval time.Duration

	commitMu   sync.Mutex
	timer      *time.Timer
	lastCommit time.Time
	published  uint64
	closed     bool
	unsubStore func()

	fanout
}

// New creates a gateway and publishes the current store contents to m.
func New(store *config.Store, m Mixer, opts ...Option) *Gateway {
	g := &Gateway{
		store:    store,
		mixer:    m,
		log:      zerolog.Nop(),
		interval: DefaultCommitInterval,
		fanout:   fanout{subs: make(map[int]chan Notification)},
	}
	for _, opt := range opts {
		opt(g)
	}

	g.commitMu.Lock()
	g.commitLocked()
	g.commitMu.Unlock()

	g.unsubStore = store.Subscribe(func(uint64) { g.schedule() })

	return g
}

// Close stops publishing store changes. Pending changes are published
// before Close returns.
func (g *Gateway) Close() {
	g.unsubStore()

	g.commitMu.Lock()
	defer g.commitMu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
		g.commitLocked()
	}
}

// Published returns the version of the last snapshot handed to the mixer.
func (g *Gateway) Published() uint64 {
	g.commitMu.Lock()
	defer g.commitMu.Unlock()
	return g.published
}

// GetCrossfadeConfig returns the stored crossfade record.
func (g *Gateway) GetCrossfadeConfig() config.CrossfadeConfig {
	return g.store.CrossfadeConfig()
}

// SetCrossfadeConfig validates and stores c.
func (g *Gateway) SetCrossfadeConfig(c config.CrossfadeConfig) error {
	g.log.Debug().Str("command", "set_crossfade_config").
		Stringer("mode", c.Mode).
		Float64("fade_time_ms", c.FadeTimeMs()).
		Msg("command")

	return g.reject("set_crossfade_config", g.store.SetCrossfadeConfig(c))
}

// SetManualCrossfade moves the crossfader to position in [-1, 1].
func (g *Gateway) SetManualCrossfade(position float64) error {
	g.log.Debug().Str("command", "set_manual_crossfade").Float64("position", position).Msg("command")

	if math.IsNaN(position) || position < -1 || position > 1 {
		return g.reject("set_manual_crossfade", &config.ValidationError{
			Field: "position", Value: position, Reason: "must be in [-1, 1]",
		})
	}
	g.mixer.SetManual(position)
	return nil
}

// TriggerTimedFade starts a fade in dir lasting durationMs from the current
// position. A zero duration switches at the next cycle.
func (g *Gateway) TriggerTimedFade(dir crossfade.Direction, durationMs uint32) error {
	g.log.Debug().Str("command", "trigger_timed_fade").
		Stringer("direction", dir).
		Uint32("duration_ms", durationMs).
		Msg("command")

	if dir != crossfade.AToB && dir != crossfade.BToA {
		return g.reject("trigger_timed_fade", &config.ValidationError{
			Field: "direction", Value: int(dir), Reason: "is not a known direction",
		})
	}
	g.mixer.TriggerTimedFade(dir, time.Duration(durationMs)*time.Millisecond)
	return nil
}

// ForceCrossfade starts an operator fade. The direction is chosen by the
// audio side from the deck transports at the next cycle.
func (g *Gateway) ForceCrossfade() error {
	g.log.Debug().Str("command", "force_crossfade").Msg("command")
	g.mixer.Force()
	return nil
}

// GetChannelDSP returns the record of ch, or its default when none is
// stored.
func (g *Gateway) GetChannelDSP(ch config.ChannelID) config.PipelineSettings {
	return g.store.Pipeline(ch)
}

// SetPipelineSettings validates and stores the record of ch.
func (g *Gateway) SetPipelineSettings(ch config.ChannelID, s config.PipelineSettings) error {
	g.log.Debug().Str("command", "set_pipeline_settings").Str("channel", string(ch)).Msg("command")

	return g.reject("set_pipeline_settings", g.store.SetPipeline(ch, s))
}

// SetChannelEQ sets the three EQ gains of ch and enables its EQ.
func (g *Gateway) SetChannelEQ(ch config.ChannelID, lowDB, midDB, highDB float64) error {
	g.log.Debug().Str("command", "set_channel_eq").
		Str("channel", string(ch)).
		Float64("low_db", lowDB).
		Float64("mid_db", midDB).
		Float64("high_db", highDB).
		Msg("command")

	return g.reject("set_channel_eq", g.store.SetEQ(ch, lowDB, midDB, highDB))
}

func (g *Gateway) reject(cmd string, err error) error {
	if err == nil {
		return nil
	}
	g.log.Warn().Str("command", cmd).Err(err).Msg("command rejected")
	return fmt.Errorf("gateway: %s: %w", cmd, err)
}

// Run fans events of the mixer out to subscribers until ctx is done or
// the event channel is closed.
func (g *Gateway) Run(ctx context.Context) error {
	events := g.mixer.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			g.broadcast(NotificationFromEvent(ev))
		}
	}
}

// schedule publishes now when the interval has passed since the last
// publication, and otherwise arms a single trailing publication.
func (g *Gateway) schedule() {
	g.commitMu.Lock()
	defer g.commitMu.Unlock()

	if g.closed || g.timer != nil {
		return
	}
	wait := g.interval - time.Since(g.lastCommit)
	if wait <= 0 {
		g.commitLocked()
		return
	}
	g.timer = time.AfterFunc(wait, g.flush)
}

func (g *Gateway) flush() {
	g.commitMu.Lock()
	defer g.commitMu.Unlock()

	g.timer = nil
	if !g.closed {
		g.commitLocked()
	}
}

func (g *Gateway) commitLocked() {
	snap := g.store.Snapshot()
	g.mixer.Publish(snap)
	g.lastCommit = time.Now()
	g.published = snap.Version
	g.log.Debug().Uint64("version", snap.Version).Msg("settings published")
}
