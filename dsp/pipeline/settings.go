package pipeline

import (
	"github.com/cwbudde/algo-onair/dsp/core"
	"github.com/cwbudde/algo-onair/dsp/dynamics"
	"github.com/cwbudde/algo-onair/dsp/stem"
)

// Band is the parameter set of one compressor band.
type Band = dynamics.BandParams

// Settings is the complete parameter record of one channel pipeline.
type Settings struct {
	EQ         EQSettings        `json:"eq"          yaml:"eq"`
	AGC        AGCSettings       `json:"agc"         yaml:"agc"`
	Multiband  MultibandSettings `json:"multiband"   yaml:"multiband"`
	DualBand   DualBandSettings  `json:"dual_band"   yaml:"dual_band"`
	Clipper    ClipperSettings   `json:"clipper"     yaml:"clipper"`
	StemFilter StemSettings      `json:"stem_filter" yaml:"stem_filter"`
}

// EQSettings configures the three-band equaliser: a low shelf, a peaking
// mid band and a high shelf.
type EQSettings struct {
	Enabled    bool    `json:"enabled"      yaml:"enabled"`
	LowGainDB  float64 `json:"low_gain_db"  yaml:"low_gain_db"`
	LowFreqHz  float64 `json:"low_freq_hz"  yaml:"low_freq_hz"`
	MidGainDB  float64 `json:"mid_gain_db"  yaml:"mid_gain_db"`
	MidFreqHz  float64 `json:"mid_freq_hz"  yaml:"mid_freq_hz"`
	MidQ       float64 `json:"mid_q"        yaml:"mid_q"`
	HighGainDB float64 `json:"high_gain_db" yaml:"high_gain_db"`
	HighFreqHz float64 `json:"high_freq_hz" yaml:"high_freq_hz"`
}

// AGCSettings configures the automatic gain control stage.
type AGCSettings struct {
	Enabled     bool              `json:"enabled"      yaml:"enabled"`
	GateDB      float64           `json:"gate_db"      yaml:"gate_db"`
	MaxGainDB   float64           `json:"max_gain_db"  yaml:"max_gain_db"`
	TargetDB    float64           `json:"target_db"    yaml:"target_db"`
	AttackMs    float64           `json:"attack_ms"    yaml:"attack_ms"`
	ReleaseMs   float64           `json:"release_ms"   yaml:"release_ms"`
	PreEmphasis dynamics.Emphasis `json:"pre_emphasis" yaml:"pre_emphasis"`
}

// Params converts the stage settings to detector parameters.
func (s AGCSettings) Params() dynamics.AGCParams {
	return dynamics.AGCParams{
		GateDB:      s.GateDB,
		MaxGainDB:   s.MaxGainDB,
		TargetDB:    s.TargetDB,
		AttackMs:    s.AttackMs,
		ReleaseMs:   s.ReleaseMs,
		PreEmphasis: s.PreEmphasis,
	}
}

// MultibandSettings configures the five-band compressor, lowest band first.
type MultibandSettings struct {
	Enabled bool                    `json:"enabled" yaml:"enabled"`
	Bands   [dynamics.NumBands]Band `json:"bands"   yaml:"bands"`
}

// DualBandSettings configures the two-band compressor.
type DualBandSettings struct {
	Enabled     bool    `json:"enabled"      yaml:"enabled"`
	CrossoverHz float64 `json:"crossover_hz" yaml:"crossover_hz"`
	LFBand      Band    `json:"lf_band"      yaml:"lf_band"`
	HFBand      Band    `json:"hf_band"      yaml:"hf_band"`
}

// ClipperSettings configures the hard clipper.
type ClipperSettings struct {
	Enabled   bool    `json:"enabled"    yaml:"enabled"`
	CeilingDB float64 `json:"ceiling_db" yaml:"ceiling_db"`
}

// StemSettings configures the stem filter. Mode off disables the stage.
type StemSettings struct {
	Mode   stem.Mode `json:"mode"   yaml:"mode"`
	Amount float64   `json:"amount" yaml:"amount"`
}

// DefaultSettings returns a record with every stage disabled, flat EQ and
// the given stem filter amount.
func DefaultSettings(stemAmount float64) Settings {
	band := dynamics.DefaultBandParams()
	agc := dynamics.DefaultAGCParams()

	var bands [dynamics.NumBands]Band
	for i := range bands {
		bands[i] = band
	}

	return Settings{
		EQ: EQSettings{
			LowFreqHz:  100,
			MidFreqHz:  1000,
			MidQ:       1,
			HighFreqHz: 8000,
		},
		AGC: AGCSettings{
			GateDB:      agc.GateDB,
			MaxGainDB:   agc.MaxGainDB,
			TargetDB:    agc.TargetDB,
			AttackMs:    agc.AttackMs,
			ReleaseMs:   agc.ReleaseMs,
			PreEmphasis: agc.PreEmphasis,
		},
		Multiband: MultibandSettings{Bands: bands},
		DualBand: DualBandSettings{
			CrossoverHz: 250,
			LFBand:      band,
			HFBand:      band,
		},
		Clipper:    ClipperSettings{CeilingDB: -0.1},
		StemFilter: StemSettings{Mode: stem.ModeOff, Amount: stemAmount},
	}
}

// finite reports whether every numeric field is finite.
func (s *Settings) finite() bool {
	vals := [...]float64{
		s.EQ.LowGainDB, s.EQ.LowFreqHz, s.EQ.MidGainDB, s.EQ.MidFreqHz,
		s.EQ.MidQ, s.EQ.HighGainDB, s.EQ.HighFreqHz,
		s.AGC.GateDB, s.AGC.MaxGainDB, s.AGC.TargetDB, s.AGC.AttackMs, s.AGC.ReleaseMs,
		s.DualBand.CrossoverHz, s.Clipper.CeilingDB, s.StemFilter.Amount,
	}
	for _, v := range vals {
		if !core.IsFinite(v) {
			return false
		}
	}

	for i := range s.Multiband.Bands {
		if !bandFinite(&s.Multiband.Bands[i]) {
			return false
		}
	}

	return bandFinite(&s.DualBand.LFBand) && bandFinite(&s.DualBand.HFBand)
}

func bandFinite(b *Band) bool {
	for _, v := range [...]float64{b.ThresholdDB, b.Ratio, b.KneeDB, b.AttackMs, b.ReleaseMs, b.MakeupDB} {
		if !core.IsFinite(v) {
			return false
		}
	}
	return true
}
