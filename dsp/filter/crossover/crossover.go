package crossover

import (
	"fmt"

	"github.com/cwbudde/algo-onair/dsp/filter/biquad"
	"github.com/cwbudde/algo-onair/dsp/filter/design"
)

// Crossover is a two-way fourth-order Linkwitz-Riley (LR4) network that
// splits an input signal into complementary lowpass and highpass outputs.
//
// The lowpass and highpass outputs sum to an allpass-filtered version of
// the input (flat magnitude response). The sections are held by value, so
// processing and [Crossover.SetFrequency] never allocate.
type Crossover struct {
	lp   [2]biquad.Section
	hp   [2]biquad.Section
	freq float64
	sr   float64
}

// New creates an LR4 crossover at the given frequency.
//
// Returns an error for invalid parameters.
func New(freq, sampleRate float64) (*Crossover, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("crossover: sample rate must be positive, got %v", sampleRate)
	}

	c := &Crossover{sr: sampleRate}
	if err := c.SetFrequency(freq); err != nil {
		return nil, err
	}

	return c, nil
}

// SetFrequency moves the crossover point, keeping the filter state. On
// error the previous frequency stays in effect.
func (c *Crossover) SetFrequency(freq float64) error {
	if freq <= 0 || freq >= c.sr/2 {
		return fmt.Errorf("crossover: frequency must be in (0, %v), got %v", c.sr/2, freq)
	}
	if freq == c.freq {
		return nil
	}

	lp, hp, ok := design.LinkwitzRiley4(freq, c.sr)
	if !ok {
		return fmt.Errorf("crossover: failed to design LR4 at %.1f Hz", freq)
	}

	for i := range lp {
		c.lp[i].SetCoefficients(lp[i])
		c.hp[i].SetCoefficients(hp[i])
	}
	c.freq = freq

	return nil
}

// ProcessSample filters one input sample and returns the lowpass and
// highpass outputs. Their sum is allpass (flat magnitude response).
func (c *Crossover) ProcessSample(x float64) (lo, hi float64) {
	lo = c.lp[1].ProcessSample(c.lp[0].ProcessSample(x))
	hi = c.hp[1].ProcessSample(c.hp[0].ProcessSample(x))
	return lo, hi
}

// ProcessBlock filters a block of input samples, writing the lowpass
// output to lo and the highpass output to hi. All three slices must
// have the same length.
func (c *Crossover) ProcessBlock(input, lo, hi []float64) {
	n := len(input)
	if n == 0 {
		return
	}
	_ = lo[n-1]
	_ = hi[n-1]
	copy(lo, input)
	copy(hi, input)
	c.lp[0].ProcessBlock(lo)
	c.lp[1].ProcessBlock(lo)
	c.hp[0].ProcessBlock(hi)
	c.hp[1].ProcessBlock(hi)
}

// Freq returns the crossover frequency in Hz.
func (c *Crossover) Freq() float64 { return c.freq }

// SampleRate returns the sample rate in Hz.
func (c *Crossover) SampleRate() float64 { return c.sr }

// Response returns the complex lowpass and highpass responses at freqHz.
func (c *Crossover) Response(freqHz float64) (lo, hi complex128) {
	lo = c.lp[0].Response(freqHz, c.sr) * c.lp[1].Response(freqHz, c.sr)
	hi = c.hp[0].Response(freqHz, c.sr) * c.hp[1].Response(freqHz, c.sr)
	return lo, hi
}

// Reset clears the internal filter states of both LP and HP paths.
func (c *Crossover) Reset() {
	for i := range c.lp {
		c.lp[i].Reset()
		c.hp[i].Reset()
	}
}

// MultiBand is a multi-way crossover network built from cascaded LR4
// crossovers. It splits an input signal into N+1 frequency bands for N
// crossover frequencies.
//
// The bands are ordered from lowest to highest frequency. Each stage's
// highpass output feeds the next stage. Lower bands are then run through
// the allpass of every crossover above them, so the sum of all bands is a
// single allpass (flat magnitude) for any band spacing.
type MultiBand struct {
	stages []Crossover
	// comp[i] phase-aligns band i with the stages above it.
	comp [][]biquad.Section
}

// NewMultiBand creates a multi-way crossover from the given crossover
// frequencies. Frequencies must be in strictly ascending order and all
// within (0, sampleRate/2).
func NewMultiBand(freqs []float64, sampleRate float64) (*MultiBand, error) {
	if len(freqs) == 0 {
		return nil, fmt.Errorf("crossover: at least one frequency is required")
	}
	for i := 1; i < len(freqs); i++ {
		if freqs[i] <= freqs[i-1] {
			return nil, fmt.Errorf("crossover: frequencies must be strictly ascending, got %.1f after %.1f", freqs[i], freqs[i-1])
		}
	}

	stages := make([]Crossover, len(freqs))
	for i, f := range freqs {
		xo, err := New(f, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("crossover: stage %d: %w", i, err)
		}
		stages[i] = *xo
	}

	comp := make([][]biquad.Section, len(freqs))
	for i := range comp {
		comp[i] = make([]biquad.Section, len(freqs)-1-i)
		for j := range comp[i] {
			comp[i][j].SetCoefficients(design.LinkwitzRiley4Allpass(freqs[i+1+j], sampleRate))
		}
	}

	return &MultiBand{stages: stages, comp: comp}, nil
}

// NumBands returns the number of output bands.
func (m *MultiBand) NumBands() int { return len(m.stages) + 1 }

// Freqs copies the crossover frequencies into dst and returns it.
func (m *MultiBand) Freqs(dst []float64) []float64 {
	dst = dst[:0]
	for i := range m.stages {
		dst = append(dst, m.stages[i].freq)
	}
	return dst
}

// ProcessSample filters one input sample into out, which must hold at
// least NumBands() elements, ordered from lowest to highest band.
func (m *MultiBand) ProcessSample(x float64, out []float64) {
	_ = out[len(m.stages)]
	remainder := x
	for i := range m.stages {
		lo, hi := m.stages[i].ProcessSample(remainder)
		for j := range m.comp[i] {
			lo = m.comp[i][j].ProcessSample(lo)
		}
		out[i] = lo
		remainder = hi
	}
	out[len(m.stages)] = remainder
}

// Reset clears all internal filter states.
func (m *MultiBand) Reset() {
	for i := range m.stages {
		m.stages[i].Reset()
		for j := range m.comp[i] {
			m.comp[i][j].Reset()
		}
	}
}
