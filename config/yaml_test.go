package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-onair/crossfade"
	"github.com/cwbudde/algo-onair/dsp/curve"
	"github.com/cwbudde/algo-onair/dsp/dynamics"
	"github.com/cwbudde/algo-onair/dsp/stem"
)

const sampleDoc = `
crossfade:
  fade_out_curve: constant_power
  fade_in_time_ms: 7000
  mode: fixed_point
  auto_trigger_db: -120
channels:
  deck_a:
    eq:
      enabled: true
      low_gain_db: 40
    agc:
      enabled: true
      pre_emphasis: us75
    multiband:
      enabled: true
      bands:
        - ratio: 4
        - {}
        - threshold_db: -30
    stem_filter:
      mode: vocal
  voice:
    clipper:
      enabled: true
      ceiling_db: -3
    stem_filter:
      amount: 3
`

func TestParseYAMLHydratesDefaults(t *testing.T) {
	cf, pipes, err := ParseYAML([]byte(sampleDoc))
	if err != nil {
		t.Fatal(err)
	}

	want := crossfade.DefaultConfig()
	want.FadeOutCurve = curve.ConstantPower
	want.FadeInTimeMs = 7000
	want.Mode = crossfade.ModeFixedPoint
	want.AutoTriggerDB = -96 // clamped
	if cf != want {
		t.Fatalf("crossfade = %+v\nwant %+v", cf, want)
	}

	deck := pipes[DeckA]
	if !deck.EQ.Enabled || deck.EQ.LowGainDB != 12 {
		t.Errorf("deck eq = %+v, want low gain clamped to 12", deck.EQ)
	}
	if deck.EQ.MidFreqHz != DefaultPipeline(DeckA).EQ.MidFreqHz {
		t.Errorf("missing eq field not defaulted: %v", deck.EQ.MidFreqHz)
	}
	if !deck.AGC.Enabled || deck.AGC.PreEmphasis != dynamics.Emphasis75us {
		t.Errorf("deck agc = %+v", deck.AGC)
	}
	def := dynamics.DefaultBandParams()
	if deck.Multiband.Bands[0].Ratio != 4 || deck.Multiband.Bands[0].ThresholdDB != def.ThresholdDB {
		t.Errorf("band 0 = %+v", deck.Multiband.Bands[0])
	}
	if deck.Multiband.Bands[1] != def || deck.Multiband.Bands[4] != def {
		t.Errorf("missing bands not defaulted")
	}
	if deck.Multiband.Bands[2].ThresholdDB != -30 {
		t.Errorf("band 2 = %+v", deck.Multiband.Bands[2])
	}
	if deck.StemFilter.Mode != stem.ModeVocal || deck.StemFilter.Amount != DeckStemAmount {
		t.Errorf("deck stem = %+v", deck.StemFilter)
	}

	voice := pipes[Voice]
	if !voice.Clipper.Enabled || voice.Clipper.CeilingDB != -3 {
		t.Errorf("voice clipper = %+v", voice.Clipper)
	}
	if voice.StemFilter.Amount != 1 {
		t.Errorf("voice amount = %v, want clamped to 1", voice.StemFilter.Amount)
	}
	if voice.EQ != DefaultPipeline(Voice).EQ {
		t.Errorf("voice eq not defaulted")
	}
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "crossfade:\n  fade_time: 3\n"},
		{"unknown curve", "crossfade:\n  fade_in_curve: cubic\n"},
		{"unknown stem mode", "channels:\n  deck_a:\n    stem_filter:\n      mode: karaoke\n"},
		{"too many bands", "channels:\n  aux_1:\n    multiband:\n      bands: [{}, {}, {}, {}, {}, {}]\n"},
		{"nan field", "channels:\n  aux_1:\n    eq:\n      mid_q: .nan\n"},
		{"wrong type", "channels:\n  aux_1:\n    eq:\n      enabled: maybe\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseYAML([]byte(tt.doc)); !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestParseYAMLEmptyDocument(t *testing.T) {
	cf, pipes, err := ParseYAML(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cf != crossfade.DefaultConfig() || len(pipes) != 0 {
		t.Fatalf("empty document hydrated to %+v, %v", cf, pipes)
	}
}

func TestParseYAMLAutoWindowOrder(t *testing.T) {
	cf, _, err := ParseYAML([]byte("crossfade:\n  auto_min_ms: 9000\n  auto_max_ms: 4000\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cf.AutoMinMs != 4000 || cf.AutoMaxMs != 4000 {
		t.Fatalf("auto window = [%v, %v], want [4000, 4000]", cf.AutoMinMs, cf.AutoMaxMs)
	}
}

func TestLegacyEQ(t *testing.T) {
	doc := `
channels:
  aux_1:
    eq_low: 3
    eq_high: -20
  aux_2:
    eq_low: 3
    eq:
      mid_gain_db: 1
  aux_3:
    eq_enabled: false
    eq_mid: 2
`
	_, pipes, err := ParseYAML([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}

	if eq := pipes[Aux1].EQ; !eq.Enabled || eq.LowGainDB != 3 || eq.MidGainDB != 0 || eq.HighGainDB != -12 {
		t.Errorf("legacy aux_1 eq = %+v", eq)
	}
	if eq := pipes[Aux2].EQ; eq.LowGainDB != 0 || eq.MidGainDB != 1 {
		t.Errorf("nested eq must win over legacy fields: %+v", eq)
	}
	if eq := pipes[Aux3].EQ; eq.Enabled || eq.MidGainDB != 2 {
		t.Errorf("legacy aux_3 eq = %+v", eq)
	}
}

func TestSnapshotYAMLReloads(t *testing.T) {
	s := NewStore()
	if err := s.LoadYAML([]byte(sampleDoc)); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()

	data, err := yaml.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	cf, pipes, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("dumped document does not parse: %v\n%s", err, data)
	}
	if cf != snap.Crossfade || pipes[DeckA] != snap.Pipelines[DeckA] || pipes[Voice] != snap.Pipelines[Voice] {
		t.Fatal("dumped document hydrates to different records")
	}
}

func TestLoadFile(t *testing.T) {
	s := NewStore()
	err := s.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrTransientIO) {
		t.Fatalf("error = %v, want ErrTransientIO", err)
	}

	path := filepath.Join(t.TempDir(), "onair.yaml")
	if err := os.WriteFile(path, []byte("crossfade:\n  mode: ruthless\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.LoadFile(path); !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if s.Version() != 0 {
		t.Fatal("rejected file changed the store")
	}
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onair.yaml")
	if err := os.WriteFile(path, []byte("crossfade:\n  fade_in_time_ms: 1000\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	versions := make(chan uint64, 16)
	s.Subscribe(func(v uint64) {
		select {
		case versions <- v:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, path) }()

	waitVersion := func() {
		t.Helper()
		select {
		case <-versions:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a reload")
		}
	}

	waitVersion()
	if got := s.CrossfadeConfig().FadeInTimeMs; got != 1000 {
		t.Fatalf("initial load: fade_in_time_ms = %v", got)
	}

	// Give the watcher time to register before the change.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("crossfade:\n  fade_in_time_ms: 2500\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for s.CrossfadeConfig().FadeInTimeMs != 2500 {
		select {
		case <-versions:
		case <-deadline:
			t.Fatal("file change not picked up")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
}
