// Package pipeline runs the per-channel processing chain of the on-air
// engine.
//
// The stage order is fixed:
//
//	EQ -> AGC -> multiband compressor -> dual-band compressor -> clipper -> stem filter
//
// A disabled stage is skipped, so its output is bit-identical to a chain
// without that stage. A stage that is enabled again starts from a cleared
// state.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-onair/dsp/core"
	"github.com/cwbudde/algo-onair/dsp/dynamics"
	"github.com/cwbudde/algo-onair/dsp/filter/biquad"
	"github.com/cwbudde/algo-onair/dsp/filter/design"
	"github.com/cwbudde/algo-onair/dsp/stem"
)

const (
	// MinSampleRate is the lowest supported sample rate.
	MinSampleRate = 8000.0

	// maxFreqRatio limits EQ and crossover frequencies to a fraction of
	// the sample rate.
	maxFreqRatio = 0.45
	minFreqHz    = 10.0

	shelfQ = 0.7071067811865476
)

var (
	// ErrSampleRate is returned by [New] for unsupported sample rates.
	ErrSampleRate = errors.New("pipeline: unsupported sample rate")
	// ErrNonFinite is returned by [Pipeline.Apply] for NaN or Inf fields.
	ErrNonFinite = errors.New("pipeline: non-finite setting")
)

// Pipeline processes one stereo channel. It is owned by the audio cycle and
// is not safe for concurrent use.
type Pipeline struct {
	sampleRate float64
	maxFreq    float64
	settings   Settings

	// eqL and eqR hold the low shelf, mid peak and high shelf.
	eqL, eqR *biquad.Chain

	agc       *dynamics.AGC
	multiband *dynamics.Multiband
	dualBand  *dynamics.DualBand
	clipper   *dynamics.Clipper
	stem      *stem.Filter
}

// New creates a pipeline with every stage disabled.
func New(sampleRate float64) (*Pipeline, error) {
	if !core.IsFinite(sampleRate) || sampleRate < MinSampleRate {
		return nil, fmt.Errorf("%w: %g Hz", ErrSampleRate, sampleRate)
	}

	p := &Pipeline{
		sampleRate: sampleRate,
		maxFreq:    maxFreqRatio * sampleRate,
		settings:   DefaultSettings(0),
		clipper:    dynamics.NewClipper(),
	}

	var err error
	if p.agc, err = dynamics.NewAGC(sampleRate); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if p.multiband, err = dynamics.NewMultiband(sampleRate); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if p.dualBand, err = dynamics.NewDualBand(p.limitFreq(p.settings.DualBand.CrossoverHz), sampleRate); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if p.stem, err = stem.New(sampleRate); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	p.eqL = biquad.NewChain(biquad.Identity(), biquad.Identity(), biquad.Identity())
	p.eqR = biquad.NewChain(biquad.Identity(), biquad.Identity(), biquad.Identity())

	return p, nil
}

// SampleRate returns the processing sample rate.
func (p *Pipeline) SampleRate() float64 { return p.sampleRate }

// Settings returns the last applied settings.
func (p *Pipeline) Settings() Settings { return p.settings }

// Latency returns the delay of the chain in frames.
func (p *Pipeline) Latency() int { return p.stem.Latency() }

// Apply validates s and reconfigures every stage. On error nothing changes
// and the previous settings stay active. Apply does not allocate on
// success.
//
// EQ and crossover frequencies are limited to 0.45 of the sample rate.
func (p *Pipeline) Apply(s Settings) error {
	if !s.finite() {
		return ErrNonFinite
	}
	if err := p.validate(&s); err != nil {
		return err
	}

	old := &p.settings

	if s.EQ.Enabled {
		if s.EQ != old.EQ {
			p.configureEQ(&s.EQ)
		}
		if !old.EQ.Enabled {
			p.eqL.Reset()
			p.eqR.Reset()
		}
	}

	if s.AGC.Enabled {
		_ = p.agc.Configure(s.AGC.Params())
		if !old.AGC.Enabled {
			p.agc.Reset()
		}
	}

	if s.Multiband.Enabled {
		_ = p.multiband.Configure(s.Multiband.Bands)
		if !old.Multiband.Enabled {
			p.multiband.Reset()
		}
	}

	if s.DualBand.Enabled {
		_ = p.dualBand.Configure(p.limitFreq(s.DualBand.CrossoverHz), s.DualBand.LFBand, s.DualBand.HFBand)
		if !old.DualBand.Enabled {
			p.dualBand.Reset()
		}
	}

	if s.Clipper.Enabled {
		_ = p.clipper.SetCeiling(s.Clipper.CeilingDB)
	}

	_ = p.stem.Configure(s.StemFilter.Mode, s.StemFilter.Amount)

	p.settings = s

	return nil
}

// validate checks the enabled stages against the ranges of their
// processors.
func (p *Pipeline) validate(s *Settings) error {
	if s.EQ.Enabled && s.EQ.MidQ <= 0 {
		return fmt.Errorf("pipeline: EQ mid Q must be positive, got %g", s.EQ.MidQ)
	}
	if s.AGC.Enabled {
		if err := s.AGC.Params().Validate(); err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
	}
	if s.Multiband.Enabled {
		for i := range s.Multiband.Bands {
			if err := s.Multiband.Bands[i].Validate(); err != nil {
				return fmt.Errorf("pipeline: multiband band %d: %w", i, err)
			}
		}
	}
	if s.DualBand.Enabled {
		if err := s.DualBand.LFBand.Validate(); err != nil {
			return fmt.Errorf("pipeline: dual-band lf band: %w", err)
		}
		if err := s.DualBand.HFBand.Validate(); err != nil {
			return fmt.Errorf("pipeline: dual-band hf band: %w", err)
		}
	}
	if s.Clipper.Enabled {
		if err := dynamics.CheckCeiling(s.Clipper.CeilingDB); err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
	}
	if !s.StemFilter.Mode.Valid() {
		return fmt.Errorf("pipeline: invalid stem filter mode %d", s.StemFilter.Mode)
	}

	return nil
}

func (p *Pipeline) configureEQ(eq *EQSettings) {
	lo := design.LowShelf(p.limitFreq(eq.LowFreqHz), eq.LowGainDB, shelfQ, p.sampleRate)
	mid := design.Peak(p.limitFreq(eq.MidFreqHz), eq.MidGainDB, eq.MidQ, p.sampleRate)
	hi := design.HighShelf(p.limitFreq(eq.HighFreqHz), eq.HighGainDB, shelfQ, p.sampleRate)
	p.eqL.SetCoefficients(lo, mid, hi)
	p.eqR.SetCoefficients(lo, mid, hi)
}

// EQResponseDB returns the gain of the EQ stage at hz. It is 0 while the
// stage is disabled.
func (p *Pipeline) EQResponseDB(hz float64) float64 {
	if !p.settings.EQ.Enabled {
		return 0
	}
	return p.eqL.MagnitudeDB(hz, p.sampleRate)
}

// GainReductionDB returns the deepest reduction of the multiband and
// dual-band compressors since the previous call, as a value <= 0.
// Disabled stages report 0.
func (p *Pipeline) GainReductionDB() float64 {
	g := 1.0
	if p.settings.Multiband.Enabled {
		g = min(g, p.multiband.GainReduction())
	}
	if p.settings.DualBand.Enabled {
		g = min(g, p.dualBand.GainReduction())
	}
	return core.LinearToDB(g)
}

func (p *Pipeline) limitFreq(hz float64) float64 {
	return core.Clamp(hz, minFreqHz, p.maxFreq)
}

// Process runs left and right through the enabled stages in place. right
// must be at least as long as left.
func (p *Pipeline) Process(left, right []float64) {
	right = right[:len(left)]
	s := &p.settings

	if s.EQ.Enabled {
		p.eqL.ProcessBlock(left)
		p.eqR.ProcessBlock(right)
	}
	if s.AGC.Enabled {
		p.agc.ProcessStereo(left, right)
	}
	if s.Multiband.Enabled {
		p.multiband.ProcessStereo(left, right)
	}
	if s.DualBand.Enabled {
		p.dualBand.ProcessStereo(left, right)
	}
	if s.Clipper.Enabled {
		p.clipper.ProcessStereo(left, right)
	}

	p.stem.ProcessStereo(left, right)
}

// Reset clears the state of every stage.
func (p *Pipeline) Reset() {
	p.eqL.Reset()
	p.eqR.Reset()
	p.agc.Reset()
	p.multiband.Reset()
	p.dualBand.Reset()
	p.stem.Reset()
}
