package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-onair/dsp/core"
)

const (
	// Parameter validation ranges
	minThresholdDB = -60.0
	maxThresholdDB = 0.0
	minRatio       = 1.0
	maxRatio       = 20.0
	minKneeDB      = 0.0
	maxKneeDB      = 24.0
	minAttackMs    = 0.1
	maxAttackMs    = 1000.0
	minReleaseMs   = 1.0
	maxReleaseMs   = 5000.0
	minMakeupDB    = 0.0
	maxMakeupDB    = 24.0

	// log2Of10Div20 is the conversion factor for dB to log2: log2(10) / 20
	// Used for converting decibel values to log2 domain
	log2Of10Div20 = 0.166096404744
)

// BandParams is the parameter set of one compressor band.
type BandParams struct {
	ThresholdDB float64 `json:"threshold_db" yaml:"threshold_db"`
	Ratio       float64 `json:"ratio"        yaml:"ratio"`
	KneeDB      float64 `json:"knee_db"      yaml:"knee_db"`
	AttackMs    float64 `json:"attack_ms"    yaml:"attack_ms"`
	ReleaseMs   float64 `json:"release_ms"   yaml:"release_ms"`
	MakeupDB    float64 `json:"makeup_db"    yaml:"makeup_db"`
}

// DefaultBandParams returns a gentle 2:1 band at -20 dB.
func DefaultBandParams() BandParams {
	return BandParams{
		ThresholdDB: -20,
		Ratio:       2,
		KneeDB:      6,
		AttackMs:    10,
		ReleaseMs:   100,
		MakeupDB:    0,
	}
}

// Validate reports the first parameter outside its range.
func (p BandParams) Validate() error {
	checks := [...]struct {
		name     string
		v        float64
		min, max float64
	}{
		{"threshold_db", p.ThresholdDB, minThresholdDB, maxThresholdDB},
		{"ratio", p.Ratio, minRatio, maxRatio},
		{"knee_db", p.KneeDB, minKneeDB, maxKneeDB},
		{"attack_ms", p.AttackMs, minAttackMs, maxAttackMs},
		{"release_ms", p.ReleaseMs, minReleaseMs, maxReleaseMs},
		{"makeup_db", p.MakeupDB, minMakeupDB, maxMakeupDB},
	}
	for _, c := range checks {
		if !core.InRange(c.v, c.min, c.max) {
			return fmt.Errorf("compressor %s must be in [%g, %g]: %g", c.name, c.min, c.max, c.v)
		}
	}

	return nil
}

// Compressor implements a soft-knee compressor with logarithmic-domain
// gain calculation for smooth compression curves.
//
// Below the knee the gain is unity. Above it the overshoot is reduced by
// (1 - 1/ratio); inside the knee the overshoot is blended quadratically.
// Attack and release smooth the peak envelope that feeds the gain computer;
// there is no look-ahead. Makeup gain is applied after reduction.
//
// The detector is stereo-linked through [Compressor.ProcessStereo]. This
// implementation is single-threaded and not thread-safe.
type Compressor struct {
	params     BandParams
	sampleRate float64

	// Envelope follower state
	peakLevel float64

	// Computed coefficients (cached for performance)
	attackCoeff      float64 // Attack time constant
	releaseCoeff     float64 // Release time constant
	thresholdLog2    float64 // Threshold in log2 domain
	kneeWidthLog2    float64 // Width of soft knee in log2 domain (k)
	invKneeWidthLog2 float64 // Reciprocal of knee width (1/k)
	slope            float64 // 1 - 1/ratio
	makeupGainLin    float64 // Linear makeup gain

	// gainReduction is the smallest gain applied since the last read.
	gainReduction float64
}

// NewCompressor creates a compressor with [DefaultBandParams].
//
// Sample rate must be positive and finite.
func NewCompressor(sampleRate float64) (*Compressor, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("compressor sample rate must be positive and finite: %f", sampleRate)
	}

	c := &Compressor{sampleRate: sampleRate, gainReduction: 1}
	c.apply(DefaultBandParams())

	return c, nil
}

// Configure validates and applies a full parameter set. The envelope is
// kept so parameter changes do not click. On error the previous
// parameters stay in effect.
func (c *Compressor) Configure(p BandParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p == c.params {
		return nil
	}

	c.apply(p)

	return nil
}

// Params returns the active parameters.
func (c *Compressor) Params() BandParams { return c.params }

// SampleRate returns the current sample rate in Hz.
func (c *Compressor) SampleRate() float64 { return c.sampleRate }

// ProcessStereo compresses one stereo frame with a linked detector.
func (c *Compressor) ProcessStereo(left, right float64) (float64, float64) {
	gain := c.detect(math.Max(math.Abs(left), math.Abs(right)))
	return left * gain, right * gain
}

// GainReduction returns the smallest gain (largest reduction, excluding
// makeup) applied since the previous call, and resets the meter.
func (c *Compressor) GainReduction() float64 {
	g := c.gainReduction
	c.gainReduction = 1
	return g
}

// Reset clears envelope follower and meter.
func (c *Compressor) Reset() {
	c.peakLevel = 0
	c.gainReduction = 1
}

func (c *Compressor) detect(inputLevel float64) float64 {
	if inputLevel > c.peakLevel {
		// Attack phase
		c.peakLevel += (inputLevel - c.peakLevel) * c.attackCoeff
	} else {
		// Release phase
		c.peakLevel = inputLevel + (c.peakLevel-inputLevel)*c.releaseCoeff
	}
	c.peakLevel = core.FlushDenormals(c.peakLevel)

	gain := c.calculateGain(c.peakLevel)
	if gain < c.gainReduction {
		c.gainReduction = gain
	}

	return gain * c.makeupGainLin
}

// apply recalculates all internal cached values.
func (c *Compressor) apply(p BandParams) {
	c.params = p

	c.thresholdLog2 = p.ThresholdDB * log2Of10Div20
	c.kneeWidthLog2 = p.KneeDB * log2Of10Div20
	if p.KneeDB > 0 {
		c.invKneeWidthLog2 = 1.0 / c.kneeWidthLog2
	} else {
		c.invKneeWidthLog2 = 0
	}
	c.slope = 1.0 - 1.0/p.Ratio
	c.makeupGainLin = core.DBToLinear(p.MakeupDB)

	// Attack: 1 - exp(-ln2 / (attack_sec * sample_rate))
	c.attackCoeff = 1.0 - math.Exp(-math.Ln2/(p.AttackMs*0.001*c.sampleRate))
	// Release: exp(-ln2 / (release_sec * sample_rate))
	c.releaseCoeff = math.Exp(-math.Ln2 / (p.ReleaseMs * 0.001 * c.sampleRate))
}

// calculateGain computes gain multiplier using log2-domain soft-knee formula.
func (c *Compressor) calculateGain(peakLevel float64) float64 {
	if peakLevel <= 0 || c.slope == 0 {
		return 1.0
	}

	peakLog2 := mathLog2(peakLevel)

	// Positive overshoot means signal is above threshold
	overshoot := peakLog2 - c.thresholdLog2

	if c.kneeWidthLog2 <= 0 {
		if overshoot <= 0 {
			return 1.0
		}
		return mathPower2(-overshoot * c.slope)
	}

	halfWidth := c.kneeWidthLog2 * 0.5
	var effectiveOvershoot float64

	switch {
	case overshoot < -halfWidth:
		return 1.0
	case overshoot > halfWidth:
		effectiveOvershoot = overshoot
	default:
		// Inside the knee: (overshoot + w/2)^2 / (2*w)
		scratch := overshoot + halfWidth
		effectiveOvershoot = scratch * scratch * 0.5 * c.invKneeWidthLog2
	}

	return mathPower2(-effectiveOvershoot * c.slope)
}
