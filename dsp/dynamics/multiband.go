package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-onair/dsp/filter/crossover"
)

// NumBands is the number of bands of the broadcast multiband compressor.
const NumBands = 5

// CrossoverFreqs are the fixed split points of the multiband compressor.
var CrossoverFreqs = [NumBands - 1]float64{100, 400, 1600, 6400}

// maxSplitRatio caps a split point relative to the sample rate. Lower
// splits stay at least an octave below a capped one.
const maxSplitRatio = 0.45

// SplitFreqs returns [CrossoverFreqs] limited to what sampleRate can
// carry, still strictly increasing.
func SplitFreqs(sampleRate float64) [NumBands - 1]float64 {
	f := CrossoverFreqs
	hi := maxSplitRatio * sampleRate
	for i := len(f) - 1; i >= 0; i-- {
		f[i] = min(f[i], hi)
		hi = f[i] / 2
	}
	return f
}

// Multiband splits a stereo signal into [NumBands] bands with LR4
// crossovers, compresses each band with its own stereo-linked
// [Compressor] and sums the bands back.
//
// Signal flow:
//
//	input -> crossover -> [band 0 compressor] -+
//	                   -> [band 1 compressor] -+-> output
//	                   -> [band 4 compressor] -+
type Multiband struct {
	xoL, xoR *crossover.MultiBand
	bands    [NumBands]*Compressor

	bufL, bufR [NumBands]float64
}

// NewMultiband creates a five-band compressor with every band at
// [DefaultBandParams].
func NewMultiband(sampleRate float64) (*Multiband, error) {
	freqs := SplitFreqs(sampleRate)
	xoL, err := crossover.NewMultiBand(freqs[:], sampleRate)
	if err != nil {
		return nil, fmt.Errorf("multiband compressor: %w", err)
	}
	xoR, err := crossover.NewMultiBand(freqs[:], sampleRate)
	if err != nil {
		return nil, fmt.Errorf("multiband compressor: %w", err)
	}

	m := &Multiband{xoL: xoL, xoR: xoR}
	for i := range m.bands {
		c, err := NewCompressor(sampleRate)
		if err != nil {
			return nil, fmt.Errorf("multiband compressor: band %d: %w", i, err)
		}
		m.bands[i] = c
	}

	return m, nil
}

// Configure applies per-band parameters, lowest band first. Nothing is
// applied if any band is invalid.
func (m *Multiband) Configure(params [NumBands]BandParams) error {
	for i := range params {
		if err := params[i].Validate(); err != nil {
			return fmt.Errorf("multiband compressor: band %d: %w", i, err)
		}
	}
	for i := range params {
		_ = m.bands[i].Configure(params[i])
	}

	return nil
}

// Freqs returns the split points in use.
func (m *Multiband) Freqs() []float64 { return m.xoL.Freqs(nil) }

// GainReduction returns the smallest band gain since the previous call
// and resets the band meters.
func (m *Multiband) GainReduction() float64 {
	g := 1.0
	for _, c := range m.bands {
		g = min(g, c.GainReduction())
	}
	return g
}

// Band returns the compressor of band i (0 = lowest).
func (m *Multiband) Band(i int) *Compressor { return m.bands[i] }

// ProcessStereo compresses left and right in place. Both slices must have
// the same length.
func (m *Multiband) ProcessStereo(left, right []float64) {
	right = right[:len(left)]
	for i := range left {
		m.xoL.ProcessSample(left[i], m.bufL[:])
		m.xoR.ProcessSample(right[i], m.bufR[:])

		var l, r float64
		for b, c := range m.bands {
			bl, br := c.ProcessStereo(m.bufL[b], m.bufR[b])
			l += bl
			r += br
		}
		left[i] = l
		right[i] = r
	}
}

// Reset clears crossover and envelope state.
func (m *Multiband) Reset() {
	m.xoL.Reset()
	m.xoR.Reset()
	for _, c := range m.bands {
		c.Reset()
	}
}
