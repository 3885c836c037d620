package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-onair/dsp/filter/crossover"
)

// DualBand splits a stereo signal at an adjustable LR4 crossover and
// compresses the low and high bands independently before summing them.
type DualBand struct {
	xoL, xoR *crossover.Crossover
	lf, hf   *Compressor
}

// NewDualBand creates a dual-band compressor split at crossoverHz.
func NewDualBand(crossoverHz, sampleRate float64) (*DualBand, error) {
	xoL, err := crossover.New(crossoverHz, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("dual-band compressor: %w", err)
	}
	xoR, err := crossover.New(crossoverHz, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("dual-band compressor: %w", err)
	}

	lf, err := NewCompressor(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("dual-band compressor: %w", err)
	}
	hf, err := NewCompressor(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("dual-band compressor: %w", err)
	}

	return &DualBand{xoL: xoL, xoR: xoR, lf: lf, hf: hf}, nil
}

// Configure moves the crossover and applies both band parameter sets.
// Nothing is applied if any value is invalid.
func (d *DualBand) Configure(crossoverHz float64, lf, hf BandParams) error {
	if crossoverHz <= 0 || crossoverHz >= d.xoL.SampleRate()/2 {
		return fmt.Errorf("dual-band compressor: crossover must be in (0, %v): %v", d.xoL.SampleRate()/2, crossoverHz)
	}
	if err := lf.Validate(); err != nil {
		return fmt.Errorf("dual-band compressor: lf band: %w", err)
	}
	if err := hf.Validate(); err != nil {
		return fmt.Errorf("dual-band compressor: hf band: %w", err)
	}

	_ = d.xoL.SetFrequency(crossoverHz)
	_ = d.xoR.SetFrequency(crossoverHz)
	_ = d.lf.Configure(lf)
	_ = d.hf.Configure(hf)

	return nil
}

// CrossoverHz returns the active split frequency.
func (d *DualBand) CrossoverHz() float64 { return d.xoL.Freq() }

// GainReduction returns the smaller gain of the two bands since the
// previous call and resets both meters.
func (d *DualBand) GainReduction() float64 {
	return min(d.lf.GainReduction(), d.hf.GainReduction())
}

// LF returns the low-band compressor.
func (d *DualBand) LF() *Compressor { return d.lf }

// HF returns the high-band compressor.
func (d *DualBand) HF() *Compressor { return d.hf }

// ProcessStereo compresses left and right in place.
func (d *DualBand) ProcessStereo(left, right []float64) {
	right = right[:len(left)]
	for i := range left {
		loL, hiL := d.xoL.ProcessSample(left[i])
		loR, hiR := d.xoR.ProcessSample(right[i])

		loL, loR = d.lf.ProcessStereo(loL, loR)
		hiL, hiR = d.hf.ProcessStereo(hiL, hiR)

		left[i] = loL + hiL
		right[i] = loR + hiR
	}
}

// Reset clears crossover and envelope state.
func (d *DualBand) Reset() {
	d.xoL.Reset()
	d.xoR.Reset()
	d.lf.Reset()
	d.hf.Reset()
}
