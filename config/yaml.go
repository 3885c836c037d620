package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-onair/crossfade"
	"github.com/cwbudde/algo-onair/dsp/curve"
	"github.com/cwbudde/algo-onair/dsp/dynamics"
	"github.com/cwbudde/algo-onair/dsp/pipeline"
	"github.com/cwbudde/algo-onair/dsp/stem"
)

// The document types mirror the records with pointer fields so that a
// missing key can be told apart from a zero value.

type fileDocument struct {
	Crossfade *crossfadeDocument             `yaml:"crossfade"`
	Channels  map[ChannelID]*channelDocument `yaml:"channels"`
}

type crossfadeDocument struct {
	FadeOutEnabled *bool           `yaml:"fade_out_enabled"`
	FadeOutCurve   *curve.Curve    `yaml:"fade_out_curve"`
	FadeOutTimeMs  *float64        `yaml:"fade_out_time_ms"`
	FadeInEnabled  *bool           `yaml:"fade_in_enabled"`
	FadeInCurve    *curve.Curve    `yaml:"fade_in_curve"`
	FadeInTimeMs   *float64        `yaml:"fade_in_time_ms"`
	Mode           *crossfade.Mode `yaml:"mode"`
	AutoTriggerDB  *float64        `yaml:"auto_trigger_db"`
	AutoMinMs      *float64        `yaml:"auto_min_ms"`
	AutoMaxMs      *float64        `yaml:"auto_max_ms"`
	FixedPointMs   *float64        `yaml:"fixed_point_ms"`
}

type channelDocument struct {
	EQ         *eqDocument        `yaml:"eq"`
	AGC        *agcDocument       `yaml:"agc"`
	Multiband  *multibandDocument `yaml:"multiband"`
	DualBand   *dualBandDocument  `yaml:"dual_band"`
	Clipper    *clipperDocument   `yaml:"clipper"`
	StemFilter *stemDocument      `yaml:"stem_filter"`

	LegacyEQ `yaml:",inline"`
}

type eqDocument struct {
	Enabled    *bool    `yaml:"enabled"`
	LowGainDB  *float64 `yaml:"low_gain_db"`
	LowFreqHz  *float64 `yaml:"low_freq_hz"`
	MidGainDB  *float64 `yaml:"mid_gain_db"`
	MidFreqHz  *float64 `yaml:"mid_freq_hz"`
	MidQ       *float64 `yaml:"mid_q"`
	HighGainDB *float64 `yaml:"high_gain_db"`
	HighFreqHz *float64 `yaml:"high_freq_hz"`
}

type agcDocument struct {
	Enabled     *bool              `yaml:"enabled"`
	GateDB      *float64           `yaml:"gate_db"`
	MaxGainDB   *float64           `yaml:"max_gain_db"`
	TargetDB    *float64           `yaml:"target_db"`
	AttackMs    *float64           `yaml:"attack_ms"`
	ReleaseMs   *float64           `yaml:"release_ms"`
	PreEmphasis *dynamics.Emphasis `yaml:"pre_emphasis"`
}

type bandDocument struct {
	ThresholdDB *float64 `yaml:"threshold_db"`
	Ratio       *float64 `yaml:"ratio"`
	KneeDB      *float64 `yaml:"knee_db"`
	AttackMs    *float64 `yaml:"attack_ms"`
	ReleaseMs   *float64 `yaml:"release_ms"`
	MakeupDB    *float64 `yaml:"makeup_db"`
}

type multibandDocument struct {
	Enabled *bool           `yaml:"enabled"`
	Bands   []*bandDocument `yaml:"bands"`
}

type dualBandDocument struct {
	Enabled     *bool         `yaml:"enabled"`
	CrossoverHz *float64      `yaml:"crossover_hz"`
	LFBand      *bandDocument `yaml:"lf_band"`
	HFBand      *bandDocument `yaml:"hf_band"`
}

type clipperDocument struct {
	Enabled   *bool    `yaml:"enabled"`
	CeilingDB *float64 `yaml:"ceiling_db"`
}

type stemDocument struct {
	Mode   *stem.Mode `yaml:"mode"`
	Amount *float64   `yaml:"amount"`
}

// LegacyEQ is the deprecated flat EQ shape, kept as an input format only.
// It is read from the channel level of a document when no nested eq block
// is present.
type LegacyEQ struct {
	Enabled *bool    `yaml:"eq_enabled"`
	LowDB   *float64 `yaml:"eq_low"`
	MidDB   *float64 `yaml:"eq_mid"`
	HighDB  *float64 `yaml:"eq_high"`
}

// IsZero reports whether no legacy field is set.
func (l LegacyEQ) IsZero() bool {
	return l.Enabled == nil && l.LowDB == nil && l.MidDB == nil && l.HighDB == nil
}

// Translate writes the legacy fields into the nested EQ of s. Setting any
// gain enables the stage unless eq_enabled says otherwise.
func (l LegacyEQ) Translate(s *PipelineSettings) {
	if l.IsZero() {
		return
	}
	set(&s.EQ.LowGainDB, l.LowDB)
	set(&s.EQ.MidGainDB, l.MidDB)
	set(&s.EQ.HighGainDB, l.HighDB)
	s.EQ.Enabled = true
	set(&s.EQ.Enabled, l.Enabled)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func hydrateCrossfade(d *crossfadeDocument) (CrossfadeConfig, error) {
	c := DefaultCrossfadeConfig()
	if d != nil {
		set(&c.FadeOutEnabled, d.FadeOutEnabled)
		set(&c.FadeOutCurve, d.FadeOutCurve)
		set(&c.FadeOutTimeMs, d.FadeOutTimeMs)
		set(&c.FadeInEnabled, d.FadeInEnabled)
		set(&c.FadeInCurve, d.FadeInCurve)
		set(&c.FadeInTimeMs, d.FadeInTimeMs)
		set(&c.Mode, d.Mode)
		set(&c.AutoTriggerDB, d.AutoTriggerDB)
		set(&c.AutoMinMs, d.AutoMinMs)
		set(&c.AutoMaxMs, d.AutoMaxMs)
		set(&c.FixedPointMs, d.FixedPointMs)
	}

	if err := clampFields(crossfadeFields(&c)); err != nil {
		return c, err
	}
	c.AutoMinMs = min(c.AutoMinMs, c.AutoMaxMs)

	return c, ValidateCrossfade(c)
}

func hydrateBand(b *pipeline.Band, d *bandDocument) {
	if d == nil {
		return
	}
	set(&b.ThresholdDB, d.ThresholdDB)
	set(&b.Ratio, d.Ratio)
	set(&b.KneeDB, d.KneeDB)
	set(&b.AttackMs, d.AttackMs)
	set(&b.ReleaseMs, d.ReleaseMs)
	set(&b.MakeupDB, d.MakeupDB)
}

func hydratePipeline(ch ChannelID, d *channelDocument) (PipelineSettings, error) {
	s := DefaultPipeline(ch)
	if d == nil {
		return s, nil
	}

	if eq := d.EQ; eq != nil {
		set(&s.EQ.Enabled, eq.Enabled)
		set(&s.EQ.LowGainDB, eq.LowGainDB)
		set(&s.EQ.LowFreqHz, eq.LowFreqHz)
		set(&s.EQ.MidGainDB, eq.MidGainDB)
		set(&s.EQ.MidFreqHz, eq.MidFreqHz)
		set(&s.EQ.MidQ, eq.MidQ)
		set(&s.EQ.HighGainDB, eq.HighGainDB)
		set(&s.EQ.HighFreqHz, eq.HighFreqHz)
	} else {
		d.LegacyEQ.Translate(&s)
	}

	if agc := d.AGC; agc != nil {
		set(&s.AGC.Enabled, agc.Enabled)
		set(&s.AGC.GateDB, agc.GateDB)
		set(&s.AGC.MaxGainDB, agc.MaxGainDB)
		set(&s.AGC.TargetDB, agc.TargetDB)
		set(&s.AGC.AttackMs, agc.AttackMs)
		set(&s.AGC.ReleaseMs, agc.ReleaseMs)
		set(&s.AGC.PreEmphasis, agc.PreEmphasis)
	}

	if mb := d.Multiband; mb != nil {
		if len(mb.Bands) > len(s.Multiband.Bands) {
			return s, &ValidationError{
				Field:  "multiband.bands",
				Value:  len(mb.Bands),
				Reason: fmt.Sprintf("has more than %d entries", len(s.Multiband.Bands)),
			}
		}
		set(&s.Multiband.Enabled, mb.Enabled)
		for i, b := range mb.Bands {
			hydrateBand(&s.Multiband.Bands[i], b)
		}
	}

	if db := d.DualBand; db != nil {
		set(&s.DualBand.Enabled, db.Enabled)
		set(&s.DualBand.CrossoverHz, db.CrossoverHz)
		hydrateBand(&s.DualBand.LFBand, db.LFBand)
		hydrateBand(&s.DualBand.HFBand, db.HFBand)
	}

	if cl := d.Clipper; cl != nil {
		set(&s.Clipper.Enabled, cl.Enabled)
		set(&s.Clipper.CeilingDB, cl.CeilingDB)
	}

	if sf := d.StemFilter; sf != nil {
		set(&s.StemFilter.Mode, sf.Mode)
		set(&s.StemFilter.Amount, sf.Amount)
	}

	if err := clampFields(pipelineFields(&s)); err != nil {
		return s, err
	}
	return NormalizePipeline(s)
}

// ParseYAML hydrates a configuration document. Unknown keys and malformed
// values are validation errors.
func ParseYAML(data []byte) (CrossfadeConfig, map[ChannelID]PipelineSettings, error) {
	var doc fileDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return CrossfadeConfig{}, nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	cf, err := hydrateCrossfade(doc.Crossfade)
	if err != nil {
		return cf, nil, fmt.Errorf("crossfade: %w", err)
	}

	pipelines := make(map[ChannelID]PipelineSettings, len(doc.Channels))
	for ch, d := range doc.Channels {
		p, err := hydratePipeline(ch, d)
		if err != nil {
			return cf, nil, fmt.Errorf("channel %s: %w", ch, err)
		}
		pipelines[ch] = p
	}

	return cf, pipelines, nil
}

// LoadYAML replaces the store contents with a hydrated document. On error
// the store is unchanged.
func (s *Store) LoadYAML(data []byte) error {
	cf, pipelines, err := ParseYAML(data)
	if err != nil {
		return err
	}
	s.replace(cf, pipelines)
	s.log.Info().Int("channels", len(pipelines)).Msg("configuration loaded")

	return nil
}

// LoadFile reads path and calls [Store.LoadYAML]. Read failures wrap
// ErrTransientIO.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrTransientIO, path, err)
	}
	if err := s.LoadYAML(data); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// MarshalYAML encodes the stored records in the nested document shape.
func (s *Snapshot) MarshalYAML() (any, error) {
	return struct {
		Crossfade CrossfadeConfig                `yaml:"crossfade"`
		Channels  map[ChannelID]PipelineSettings `yaml:"channels"`
	}{s.Crossfade, s.Pipelines}, nil
}
