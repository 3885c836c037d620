package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-onair/dsp/core"
	"github.com/cwbudde/algo-onair/dsp/filter/biquad"
	"github.com/cwbudde/algo-onair/dsp/filter/design"
)

const (
	minGateDB       = -80.0
	maxGateDB       = 0.0
	minMaxGainDB    = 0.0
	maxMaxGainDB    = 30.0
	minTargetDB     = -40.0
	maxTargetDB     = 0.0
	minAGCAttackMs  = 1.0
	maxAGCAttackMs  = 10000.0
	minAGCReleaseMs = 10.0
	maxAGCReleaseMs = 30000.0

	// agcDetectorMs is the integration time of the RMS detector.
	agcDetectorMs = 50.0
	// agcFloorDB keeps the detector finite on digital silence.
	agcFloorDB = -120.0

	// tenLog10Of2 converts log2 of a power ratio to dB.
	tenLog10Of2 = 3.010299956639812
)

// Emphasis selects the detector pre-emphasis of the AGC.
type Emphasis int

const (
	EmphasisNone Emphasis = iota
	Emphasis50us
	Emphasis75us
)

var emphasisNames = [...]string{"none", "us50", "us75"}

// Valid reports whether e is a known pre-emphasis.
func (e Emphasis) Valid() bool { return e >= EmphasisNone && e <= Emphasis75us }

func (e Emphasis) String() string {
	if !e.Valid() {
		return fmt.Sprintf("Emphasis(%d)", int(e))
	}
	return emphasisNames[e]
}

// MarshalText implements encoding.TextMarshaler.
func (e Emphasis) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("agc pre_emphasis invalid: %d", int(e))
	}
	return []byte(emphasisNames[e]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Emphasis) UnmarshalText(text []byte) error {
	for i, n := range emphasisNames {
		if n == string(text) {
			*e = Emphasis(i)
			return nil
		}
	}
	return fmt.Errorf("agc pre_emphasis unknown: %q", text)
}

// AGCParams configures the automatic gain control.
type AGCParams struct {
	GateDB      float64
	MaxGainDB   float64
	TargetDB    float64
	AttackMs    float64
	ReleaseMs   float64
	PreEmphasis Emphasis
}

// DefaultAGCParams returns a slow broadcast leveler aiming at -18 dBFS RMS.
func DefaultAGCParams() AGCParams {
	return AGCParams{
		GateDB:      -50,
		MaxGainDB:   12,
		TargetDB:    -18,
		AttackMs:    500,
		ReleaseMs:   3000,
		PreEmphasis: EmphasisNone,
	}
}

// Validate reports the first parameter outside its range.
func (p AGCParams) Validate() error {
	checks := [...]struct {
		name     string
		v        float64
		min, max float64
	}{
		{"gate_db", p.GateDB, minGateDB, maxGateDB},
		{"max_gain_db", p.MaxGainDB, minMaxGainDB, maxMaxGainDB},
		{"target_db", p.TargetDB, minTargetDB, maxTargetDB},
		{"attack_ms", p.AttackMs, minAGCAttackMs, maxAGCAttackMs},
		{"release_ms", p.ReleaseMs, minAGCReleaseMs, maxAGCReleaseMs},
	}
	for _, c := range checks {
		if !core.InRange(c.v, c.min, c.max) {
			return fmt.Errorf("agc %s must be in [%g, %g]: %g", c.name, c.min, c.max, c.v)
		}
	}
	if !p.PreEmphasis.Valid() {
		return fmt.Errorf("agc pre_emphasis invalid: %d", p.PreEmphasis)
	}

	return nil
}

// AGC is a stereo-linked automatic gain control.
//
// An RMS detector measures the (optionally pre-emphasised) sidechain. While
// the level is below the gate the gain is frozen. Above it the gain moves
// toward TargetDB - level, limited to +/-MaxGainDB, with the attack time
// when the gain must fall and the release time when it may rise.
// Pre-emphasis shapes the detector only; the output path is never
// filtered.
type AGC struct {
	params     AGCParams
	sampleRate float64

	emphL, emphR biquad.Section
	emphasis     bool

	detCoeff     float64
	attackCoeff  float64
	releaseCoeff float64

	meanSquare float64
	gainDB     float64
}

// NewAGC creates an AGC with [DefaultAGCParams].
func NewAGC(sampleRate float64) (*AGC, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("agc sample rate must be positive and finite: %f", sampleRate)
	}

	a := &AGC{sampleRate: sampleRate, detCoeff: core.TimeCoeff(agcDetectorMs, sampleRate)}
	a.apply(DefaultAGCParams())

	return a, nil
}

// Configure validates and applies a parameter set, keeping the current
// gain.
func (a *AGC) Configure(p AGCParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p != a.params {
		a.apply(p)
	}

	return nil
}

// Params returns the active parameters.
func (a *AGC) Params() AGCParams { return a.params }

// GainDB returns the gain currently applied.
func (a *AGC) GainDB() float64 { return a.gainDB }

// ProcessStereo levels left and right in place.
func (a *AGC) ProcessStereo(left, right []float64) {
	right = right[:len(left)]
	p := &a.params

	for i := range left {
		dl, dr := left[i], right[i]
		if a.emphasis {
			dl = a.emphL.ProcessSample(dl)
			dr = a.emphR.ProcessSample(dr)
		}

		power := 0.5 * (dl*dl + dr*dr)
		a.meanSquare += (power - a.meanSquare) * a.detCoeff
		a.meanSquare = core.FlushDenormals(a.meanSquare)

		levelDB := agcFloorDB
		if a.meanSquare > 0 {
			levelDB = max(mathLog2(a.meanSquare)*tenLog10Of2, agcFloorDB)
		}

		if levelDB >= p.GateDB {
			want := core.Clamp(p.TargetDB-levelDB, -p.MaxGainDB, p.MaxGainDB)
			if want < a.gainDB {
				a.gainDB += (want - a.gainDB) * a.attackCoeff
			} else {
				a.gainDB += (want - a.gainDB) * a.releaseCoeff
			}
		}

		g := mathPower2(a.gainDB * log2Of10Div20)
		left[i] *= g
		right[i] *= g
	}
}

// Reset clears the detector and returns the gain to 0 dB.
func (a *AGC) Reset() {
	a.emphL.Reset()
	a.emphR.Reset()
	a.meanSquare = 0
	a.gainDB = 0
}

func (a *AGC) apply(p AGCParams) {
	prevEmphasis := a.params.PreEmphasis
	a.params = p
	a.attackCoeff = core.TimeCoeff(p.AttackMs, a.sampleRate)
	a.releaseCoeff = core.TimeCoeff(p.ReleaseMs, a.sampleRate)
	a.gainDB = core.Clamp(a.gainDB, -p.MaxGainDB, p.MaxGainDB)

	var tau float64
	switch p.PreEmphasis {
	case Emphasis50us:
		tau = design.Emphasis50us
	case Emphasis75us:
		tau = design.Emphasis75us
	}

	a.emphasis = tau > 0
	if a.emphasis {
		c := design.PreEmphasis(tau, a.sampleRate)
		a.emphL.SetCoefficients(c)
		a.emphR.SetCoefficients(c)
	}
	if p.PreEmphasis != prevEmphasis {
		a.emphL.Reset()
		a.emphR.Reset()
	}
}
