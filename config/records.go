package config

import (
	"fmt"

	"github.com/cwbudde/algo-onair/crossfade"
	"github.com/cwbudde/algo-onair/dsp/core"
	"github.com/cwbudde/algo-onair/dsp/pipeline"
)

// CrossfadeConfig is the crossfade configuration record.
type CrossfadeConfig = crossfade.Config

// PipelineSettings is the processing record of one channel.
type PipelineSettings = pipeline.Settings

// Default stem filter amounts per channel kind.
const (
	DeckStemAmount = 0.85
	AuxStemAmount  = 0.5
)

// DefaultCrossfadeConfig returns the factory crossfade record.
func DefaultCrossfadeConfig() CrossfadeConfig {
	return crossfade.DefaultConfig()
}

// DefaultPipeline returns the default record of ch. Deck channels differ
// from the others only in the stem filter amount.
func DefaultPipeline(ch ChannelID) PipelineSettings {
	if ch.Kind() == KindDeck {
		return pipeline.DefaultSettings(DeckStemAmount)
	}
	return pipeline.DefaultSettings(AuxStemAmount)
}

type numField struct {
	name     string
	v        *float64
	min, max float64
}

func crossfadeFields(c *CrossfadeConfig) []numField {
	return []numField{
		{"fade_out_time_ms", &c.FadeOutTimeMs, 1, 60000},
		{"fade_in_time_ms", &c.FadeInTimeMs, 1, 60000},
		{"auto_trigger_db", &c.AutoTriggerDB, -96, 0},
		{"auto_min_ms", &c.AutoMinMs, 100, 60000},
		{"auto_max_ms", &c.AutoMaxMs, 100, 60000},
		{"fixed_point_ms", &c.FixedPointMs, 1, 60000},
	}
}

func bandFields(prefix string, b *pipeline.Band) []numField {
	return []numField{
		{prefix + ".threshold_db", &b.ThresholdDB, -60, 0},
		{prefix + ".ratio", &b.Ratio, 1, 20},
		{prefix + ".knee_db", &b.KneeDB, 0, 24},
		{prefix + ".attack_ms", &b.AttackMs, 0.1, 1000},
		{prefix + ".release_ms", &b.ReleaseMs, 1, 5000},
		{prefix + ".makeup_db", &b.MakeupDB, 0, 24},
	}
}

// pipelineFields lists every ranged field of s. The stem filter amount is
// clamped instead and is not part of the list.
func pipelineFields(s *PipelineSettings) []numField {
	fields := []numField{
		{"eq.low_gain_db", &s.EQ.LowGainDB, -12, 12},
		{"eq.low_freq_hz", &s.EQ.LowFreqHz, 20, 1000},
		{"eq.mid_gain_db", &s.EQ.MidGainDB, -12, 12},
		{"eq.mid_freq_hz", &s.EQ.MidFreqHz, 200, 8000},
		{"eq.mid_q", &s.EQ.MidQ, 0.1, 10},
		{"eq.high_gain_db", &s.EQ.HighGainDB, -12, 12},
		{"eq.high_freq_hz", &s.EQ.HighFreqHz, 1000, 20000},
		{"agc.gate_db", &s.AGC.GateDB, -80, 0},
		{"agc.max_gain_db", &s.AGC.MaxGainDB, 0, 30},
		{"agc.target_db", &s.AGC.TargetDB, -40, 0},
		{"agc.attack_ms", &s.AGC.AttackMs, 1, 10000},
		{"agc.release_ms", &s.AGC.ReleaseMs, 10, 30000},
	}
	for i := range s.Multiband.Bands {
		fields = append(fields, bandFields(fmt.Sprintf("multiband.bands[%d]", i), &s.Multiband.Bands[i])...)
	}
	fields = append(fields, numField{"dual_band.crossover_hz", &s.DualBand.CrossoverHz, 50, 10000})
	fields = append(fields, bandFields("dual_band.lf_band", &s.DualBand.LFBand)...)
	fields = append(fields, bandFields("dual_band.hf_band", &s.DualBand.HFBand)...)
	fields = append(fields, numField{"clipper.ceiling_db", &s.Clipper.CeilingDB, -24, 0})

	return fields
}

func checkFields(fields []numField) error {
	for _, f := range fields {
		v := *f.v
		if !core.IsFinite(v) {
			return &ValidationError{Field: f.name, Value: v, Reason: "must be finite"}
		}
		if v < f.min || v > f.max {
			return &ValidationError{Field: f.name, Value: v, Reason: fmt.Sprintf("must be in [%g, %g]", f.min, f.max)}
		}
	}
	return nil
}

// clampFields limits every finite field to its range and reports the
// first non-finite one.
func clampFields(fields []numField) error {
	for _, f := range fields {
		if !core.IsFinite(*f.v) {
			return &ValidationError{Field: f.name, Value: *f.v, Reason: "must be finite"}
		}
		*f.v = core.Clamp(*f.v, f.min, f.max)
	}
	return nil
}

// ValidateCrossfade checks every field of c against its range.
func ValidateCrossfade(c CrossfadeConfig) error {
	if err := checkFields(crossfadeFields(&c)); err != nil {
		return err
	}
	if !c.FadeOutCurve.Valid() {
		return &ValidationError{Field: "fade_out_curve", Value: int(c.FadeOutCurve), Reason: "is not a known curve"}
	}
	if !c.FadeInCurve.Valid() {
		return &ValidationError{Field: "fade_in_curve", Value: int(c.FadeInCurve), Reason: "is not a known curve"}
	}
	if !c.Mode.Valid() {
		return &ValidationError{Field: "mode", Value: int(c.Mode), Reason: "is not a known mode"}
	}
	if c.AutoMinMs > c.AutoMaxMs {
		return &ValidationError{Field: "auto_min_ms", Value: c.AutoMinMs, Reason: fmt.Sprintf("must not exceed auto_max_ms %g", c.AutoMaxMs)}
	}
	return nil
}

// NormalizePipeline validates s and returns it with the stem filter amount
// clamped to [0, 1].
func NormalizePipeline(s PipelineSettings) (PipelineSettings, error) {
	if err := checkFields(pipelineFields(&s)); err != nil {
		return s, err
	}
	if !s.AGC.PreEmphasis.Valid() {
		return s, &ValidationError{Field: "agc.pre_emphasis", Value: int(s.AGC.PreEmphasis), Reason: "is not a known pre-emphasis"}
	}
	if !s.StemFilter.Mode.Valid() {
		return s, &ValidationError{Field: "stem_filter.mode", Value: int(s.StemFilter.Mode), Reason: "is not a known mode"}
	}
	if !core.IsFinite(s.StemFilter.Amount) {
		return s, &ValidationError{Field: "stem_filter.amount", Value: s.StemFilter.Amount, Reason: "must be finite"}
	}
	s.StemFilter.Amount = core.Clamp(s.StemFilter.Amount, 0, 1)

	return s, nil
}
