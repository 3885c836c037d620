// Package stem implements the stem filter: a short-time Fourier transform
// centre-channel separator that isolates or suppresses vocal content.
//
// Lead vocals are usually mixed to the centre. For every STFT bin the
// filter measures how similar the left and right spectra are and treats
// in-phase, equal-level content between 100 Hz and 8 kHz as vocal. In
// vocal mode everything else is attenuated by the amount; in instrumental
// mode that amount of the vocal estimate is removed.
package stem

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-onair/dsp/core"
	"github.com/cwbudde/algo-onair/dsp/window"
)

const (
	// FrameSize is the STFT length; it is also the latency of an active
	// filter in frames.
	FrameSize = 1024
	hopSize   = FrameSize / 2

	vocalLowHz  = 100.0
	vocalHighHz = 8000.0

	similarityFloor = 1e-18

	// olaTolerance bounds the ripple of the overlap-added window pair.
	olaTolerance = 1e-9
)

// Mode selects what the filter keeps.
type Mode int

const (
	ModeOff Mode = iota
	ModeVocal
	ModeInstrumental
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m >= ModeOff && m <= ModeInstrumental
}

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeVocal:
		return "vocal"
	case ModeInstrumental:
		return "instrumental"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("stem: invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	for v := ModeOff; v <= ModeInstrumental; v++ {
		if v.String() == string(text) {
			*m = v
			return nil
		}
	}
	return fmt.Errorf("stem: unknown mode %q", text)
}

// Filter is a streaming stereo stem filter. It is single-threaded and
// allocation-free after construction.
type Filter struct {
	mode   Mode
	amount float64

	plan *algofft.Plan[complex128]
	// win is the analysis window; synth is win scaled for unity
	// overlap-add gain.
	win, synth []float64

	loBin, hiBin int

	inL, inR       []float64
	outL, outR     []float64
	readyL, readyR []float64
	frameL, frameR []float64
	spectrum       []complex128
	pos            int
}

// New creates a filter in [ModeOff] for the given sample rate.
func New(sampleRate float64) (*Filter, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("stem: sample rate must be positive and finite: %f", sampleRate)
	}

	plan, err := algofft.NewPlan64(FrameSize)
	if err != nil {
		return nil, fmt.Errorf("stem: failed to create FFT plan: %w", err)
	}

	win, err := window.SqrtHann(FrameSize)
	if err != nil {
		return nil, fmt.Errorf("stem: %w", err)
	}

	gain, ripple, err := window.OverlapAddGain(win, win, hopSize)
	if err != nil {
		return nil, fmt.Errorf("stem: %w", err)
	}
	if gain <= 0 || ripple > olaTolerance {
		return nil, fmt.Errorf("stem: window does not reconstruct at hop %d: gain %g ripple %g", hopSize, gain, ripple)
	}
	synth := make([]float64, FrameSize)
	for i, w := range win {
		synth[i] = w / gain
	}

	binHz := sampleRate / FrameSize
	f := &Filter{
		plan:     plan,
		win:      win,
		synth:    synth,
		loBin:    int(math.Ceil(vocalLowHz / binHz)),
		hiBin:    min(int(math.Floor(vocalHighHz/binHz)), FrameSize/2),
		inL:      make([]float64, FrameSize),
		inR:      make([]float64, FrameSize),
		outL:     make([]float64, FrameSize),
		outR:     make([]float64, FrameSize),
		readyL:   make([]float64, hopSize),
		readyR:   make([]float64, hopSize),
		frameL:   make([]float64, FrameSize),
		frameR:   make([]float64, FrameSize),
		spectrum: make([]complex128, FrameSize),
	}

	return f, nil
}

// Configure sets mode and amount. amount is clamped to [0, 1]; a
// non-finite amount leaves the current value. Switching modes resets the
// STFT state.
func (f *Filter) Configure(mode Mode, amount float64) error {
	if !mode.Valid() {
		return fmt.Errorf("stem: invalid mode %d", mode)
	}
	if core.IsFinite(amount) {
		f.amount = core.Clamp(amount, 0, 1)
	}
	if mode != f.mode {
		f.mode = mode
		f.Reset()
	}

	return nil
}

// Mode returns the active mode.
func (f *Filter) Mode() Mode { return f.mode }

// Amount returns the active amount.
func (f *Filter) Amount() float64 { return f.amount }

// Latency returns the delay added by the filter in frames.
func (f *Filter) Latency() int {
	if f.mode == ModeOff {
		return 0
	}
	return FrameSize
}

// Reset clears all buffered audio.
func (f *Filter) Reset() {
	for _, b := range [][]float64{f.inL, f.inR, f.outL, f.outR, f.readyL, f.readyR} {
		core.Zero(b)
	}
	f.pos = 0
}

// ProcessStereo filters left and right in place. In [ModeOff] the buffers
// are left untouched.
func (f *Filter) ProcessStereo(left, right []float64) {
	if f.mode == ModeOff {
		return
	}

	right = right[:len(left)]
	tail := FrameSize - hopSize
	for i := range left {
		f.inL[tail+f.pos] = left[i]
		f.inR[tail+f.pos] = right[i]
		left[i] = f.readyL[f.pos]
		right[i] = f.readyR[f.pos]

		f.pos++
		if f.pos == hopSize {
			f.processFrame()
			f.pos = 0
		}
	}
}

func (f *Filter) processFrame() {
	copy(f.frameL, f.inL)
	copy(f.frameR, f.inR)
	_ = window.ApplyCoefficientsInPlace(f.frameL, f.win)
	_ = window.ApplyCoefficientsInPlace(f.frameR, f.win)

	// Both real channels share one complex transform: z = l + j*r.
	for i := range f.spectrum {
		f.spectrum[i] = complex(f.frameL[i], f.frameR[i])
	}
	if err := f.plan.Forward(f.spectrum, f.spectrum); err != nil {
		f.passThroughFrame()
		return
	}

	n := FrameSize
	for k := 0; k <= n/2; k++ {
		zk := f.spectrum[k]
		zn := f.spectrum[(n-k)%n]
		cn := complex(real(zn), -imag(zn))

		l := (zk + cn) / 2
		r := (zk - cn) / complex(0, 2)

		g := f.binGain(k, l, r)
		f.spectrum[k] = zk * complex(g, 0)
		if k != 0 && k != n/2 {
			f.spectrum[n-k] = zn * complex(g, 0)
		}
	}

	if err := f.plan.Inverse(f.spectrum, f.spectrum); err != nil {
		f.passThroughFrame()
		return
	}

	for i, v := range f.spectrum {
		f.frameL[i] = real(v)
		f.frameR[i] = imag(v)
	}
	f.overlapAdd()
}

// binGain maps the centre similarity of one bin to a real gain.
func (f *Filter) binGain(k int, l, r complex128) float64 {
	centre := 0.0
	if k >= f.loBin && k <= f.hiBin {
		cross := real(l)*real(r) + imag(l)*imag(r)
		energy := real(l)*real(l) + imag(l)*imag(l) + real(r)*real(r) + imag(r)*imag(r)
		if energy > similarityFloor && cross > 0 {
			centre = math.Min(2*cross/energy, 1)
		}
	}

	if f.mode == ModeVocal {
		return centre + (1-centre)*(1-f.amount)
	}
	return 1 - f.amount*centre
}

func (f *Filter) passThroughFrame() {
	copy(f.frameL, f.inL)
	copy(f.frameR, f.inR)
	_ = window.ApplyCoefficientsInPlace(f.frameL, f.win)
	_ = window.ApplyCoefficientsInPlace(f.frameR, f.win)
	f.overlapAdd()
}

func (f *Filter) overlapAdd() {
	_ = window.ApplyCoefficientsInPlace(f.frameL, f.synth)
	_ = window.ApplyCoefficientsInPlace(f.frameR, f.synth)
	core.AddInto(f.outL, f.frameL)
	core.AddInto(f.outR, f.frameR)

	copy(f.readyL, f.outL[:hopSize])
	copy(f.readyR, f.outR[:hopSize])

	copy(f.outL, f.outL[hopSize:])
	copy(f.outR, f.outR[hopSize:])
	core.Zero(f.outL[FrameSize-hopSize:])
	core.Zero(f.outR[FrameSize-hopSize:])

	copy(f.inL, f.inL[hopSize:])
	copy(f.inR, f.inR[hopSize:])
}
