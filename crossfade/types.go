package crossfade

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-onair/dsp/core"
	"github.com/cwbudde/algo-onair/dsp/curve"
)

// Deck identifies one of the two playback channels.
type Deck int

const (
	DeckA Deck = iota
	DeckB
)

// Other returns the opposite deck.
func (d Deck) Other() Deck { return 1 - d }

func (d Deck) String() string {
	if d == DeckB {
		return "deck_b"
	}
	return "deck_a"
}

// endpoint is the position at which d is the sole source.
func (d Deck) endpoint() float64 {
	if d == DeckB {
		return 1
	}
	return -1
}

// Direction is the orientation of a fade.
type Direction int

const (
	AToB Direction = iota
	BToA
)

// DirectionFrom returns the direction that fades out from.
func DirectionFrom(from Deck) Direction {
	if from == DeckB {
		return BToA
	}
	return AToB
}

// From returns the deck being faded out.
func (d Direction) From() Deck {
	if d == BToA {
		return DeckB
	}
	return DeckA
}

// To returns the deck being faded in.
func (d Direction) To() Deck { return d.From().Other() }

func (d Direction) String() string {
	if d == BToA {
		return "b_to_a"
	}
	return "a_to_b"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "a_to_b":
		*d = AToB
	case "b_to_a":
		*d = BToA
	default:
		return fmt.Errorf("crossfade: unknown direction %q", text)
	}
	return nil
}

// Mode selects how fades start without operator action.
type Mode int

const (
	// ModeAutoLevel starts a fade when the outgoing level stays below
	// the trigger near the end of the track.
	ModeAutoLevel Mode = iota
	// ModeFixedPoint starts a fade a fixed time before the end.
	ModeFixedPoint
	// ModeInstant switches decks when the outgoing track ends.
	ModeInstant
)

var modeNames = [...]string{"auto_level", "fixed_point", "instant"}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m >= ModeAutoLevel && m <= ModeInstant }

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("crossfade: invalid mode %d", int(m))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	for i, n := range modeNames {
		if n == string(text) {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("crossfade: unknown mode %q", text)
}

// Config is the crossfade configuration record.
type Config struct {
	FadeOutEnabled bool        `json:"fade_out_enabled" yaml:"fade_out_enabled"`
	FadeOutCurve   curve.Curve `json:"fade_out_curve"   yaml:"fade_out_curve"`
	FadeOutTimeMs  float64     `json:"fade_out_time_ms" yaml:"fade_out_time_ms"`
	FadeInEnabled  bool        `json:"fade_in_enabled"  yaml:"fade_in_enabled"`
	FadeInCurve    curve.Curve `json:"fade_in_curve"    yaml:"fade_in_curve"`
	FadeInTimeMs   float64     `json:"fade_in_time_ms"  yaml:"fade_in_time_ms"`
	Mode           Mode        `json:"mode"             yaml:"mode"`
	AutoTriggerDB  float64     `json:"auto_trigger_db"  yaml:"auto_trigger_db"`
	AutoMinMs      float64     `json:"auto_min_ms"      yaml:"auto_min_ms"`
	AutoMaxMs      float64     `json:"auto_max_ms"      yaml:"auto_max_ms"`
	FixedPointMs   float64     `json:"fixed_point_ms"   yaml:"fixed_point_ms"`
}

// DefaultConfig returns the factory crossfade configuration.
func DefaultConfig() Config {
	return Config{
		FadeOutEnabled: true,
		FadeOutCurve:   curve.SCurve,
		FadeOutTimeMs:  5000,
		FadeInEnabled:  true,
		FadeInCurve:    curve.SCurve,
		FadeInTimeMs:   5000,
		Mode:           ModeAutoLevel,
		AutoTriggerDB:  -30,
		AutoMinMs:      2000,
		AutoMaxMs:      10000,
		FixedPointMs:   8000,
	}
}

// FadeTimeMs returns the duration of an operator-forced fade: the longer
// of the enabled fade times, or 0 when both are disabled.
func (c Config) FadeTimeMs() float64 {
	d := 0.0
	if c.FadeOutEnabled {
		d = c.FadeOutTimeMs
	}
	if c.FadeInEnabled {
		d = math.Max(d, c.FadeInTimeMs)
	}
	return d
}

// usable reports whether the controller can run with c. Range checks
// belong to the configuration store.
func (c *Config) usable() bool {
	for _, v := range [...]float64{c.FadeOutTimeMs, c.FadeInTimeMs, c.AutoMinMs, c.AutoMaxMs, c.FixedPointMs} {
		if !core.IsFinite(v) || v < 0 {
			return false
		}
	}
	return core.IsFinite(c.AutoTriggerDB) && c.AutoMinMs <= c.AutoMaxMs &&
		c.FadeOutCurve.Valid() && c.FadeInCurve.Valid() && c.Mode.Valid()
}

// TransportState is the playback state of a deck.
type TransportState int

const (
	TransportEmpty TransportState = iota
	TransportReady
	TransportPlaying
	TransportPaused
	TransportStopped
)

var transportNames = [...]string{"empty", "ready", "playing", "paused", "stopped"}

func (s TransportState) String() string {
	if s < TransportEmpty || s > TransportStopped {
		return fmt.Sprintf("TransportState(%d)", int(s))
	}
	return transportNames[s]
}

// cued reports whether a deck in state s can take over the air.
func (s TransportState) cued() bool {
	return s == TransportReady || s == TransportPaused || s == TransportPlaying
}

// Transport is the playback position of a deck at the start of a cycle.
type Transport struct {
	State    TransportState
	Elapsed  time.Duration
	Duration time.Duration
}

// Remaining returns the time left in the track, never negative.
func (t Transport) Remaining() time.Duration {
	return max(t.Duration-t.Elapsed, 0)
}

// Advance returns t moved forward by frames at sampleRate. Only a playing
// transport moves.
func (t Transport) Advance(frames int, sampleRate float64) Transport {
	if t.State == TransportPlaying {
		t.Elapsed += FramesToDuration(int64(frames), sampleRate)
	}
	return t
}

// FramesToDuration converts a frame count to a duration, exact to the
// nanosecond for integral sample rates.
func FramesToDuration(frames int64, sampleRate float64) time.Duration {
	if r := math.Round(sampleRate); r == sampleRate && r > 0 {
		return time.Duration(frames * int64(time.Second) / int64(r))
	}
	return time.Duration(float64(frames) / sampleRate * float64(time.Second))
}

// framesUntil returns the number of whole frames before d has passed,
// rounded up. Non-positive durations give 0.
func framesUntil(d time.Duration, sampleRate float64) int64 {
	if d <= 0 {
		return 0
	}
	if r := math.Round(sampleRate); r == sampleRate {
		return (int64(d)*int64(r) + int64(time.Second) - 1) / int64(time.Second)
	}
	return int64(math.Ceil(d.Seconds() * sampleRate))
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// ResolveForceDirection picks the direction of an operator-forced fade.
//
// A playing deck is faded into a deck that is ready, paused or playing. If
// both decks play, the one with less time remaining is faded out. In every
// other case, including equal remaining times, the fade runs from the
// current outgoing deck.
func ResolveForceDirection(outgoing Deck, a, b Transport) Direction {
	aPlaying := a.State == TransportPlaying
	bPlaying := b.State == TransportPlaying

	switch {
	case aPlaying && bPlaying:
		ra, rb := a.Remaining(), b.Remaining()
		if ra < rb {
			return AToB
		}
		if rb < ra {
			return BToA
		}
	case aPlaying && b.State.cued():
		return AToB
	case bPlaying && a.State.cued():
		return BToA
	}

	return DirectionFrom(outgoing)
}

// State is the controller state.
type State int

const (
	StateIdle State = iota
	StateManualDrag
	StateTimedFade
	StateAutoDetect
	StateFixedPoint
	StateInstant
)

var stateNames = [...]string{"idle", "manual_drag", "timed_fade", "auto_detect", "fixed_point", "instant"}

func (s State) String() string {
	if s < StateIdle || s > StateInstant {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// EventKind distinguishes controller events.
type EventKind int

const (
	// EventProgress reports fade progress; at most one per cycle.
	EventProgress EventKind = iota
	// EventManualChanged reports a consumed manual position.
	EventManualChanged
)

// Event is a read-only notification from the audio cycle.
type Event struct {
	Kind     EventKind
	Outgoing Deck
	Incoming Deck
	Progress float64
	Position float64
	State    State
}
