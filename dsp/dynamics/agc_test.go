package dynamics

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-onair/internal/testutil"
)

const sr = 48000.0

func fastAGC(t *testing.T) *AGC {
	t.Helper()
	a, err := NewAGC(sr)
	if err != nil {
		t.Fatal(err)
	}
	p := DefaultAGCParams()
	p.AttackMs = 10
	p.ReleaseMs = 100
	if err := a.Configure(p); err != nil {
		t.Fatal(err)
	}
	return a
}

func TestAGC_ConvergesToTarget(t *testing.T) {
	a := fastAGC(t)

	// 0.1 peak sine is -23 dBFS RMS; target -18 needs +5 dB.
	l, r := testutil.StereoSine(1000, sr, 0.1, int(2*sr))
	a.ProcessStereo(l, r)

	if g := a.GainDB(); math.Abs(g-5) > 0.2 {
		t.Fatalf("GainDB = %v, want ~5", g)
	}
	if db := testutil.RMSDB(l[len(l)-4800:]); math.Abs(db+18) > 0.3 {
		t.Fatalf("output RMS = %v dB, want ~-18", db)
	}
}

func TestAGC_BoundedByMaxGain(t *testing.T) {
	a := fastAGC(t)
	p := a.Params()
	p.GateDB = -80
	p.MaxGainDB = 6
	if err := a.Configure(p); err != nil {
		t.Fatal(err)
	}

	l, r := testutil.StereoSine(1000, sr, 0.003, int(2*sr)) // about -53 dBFS
	a.ProcessStereo(l, r)

	if g := a.GainDB(); g > 6+1e-9 || g < 5.9 {
		t.Fatalf("GainDB = %v, want pinned at 6", g)
	}

	// Loud input pulls the gain down, never below -MaxGainDB.
	l, r = testutil.StereoSine(1000, sr, 1, int(2*sr))
	a.ProcessStereo(l, r)
	if g := a.GainDB(); g < -6-1e-9 || g > -5.9 {
		t.Fatalf("GainDB = %v, want pinned at -6", g)
	}
}

func TestAGC_GateFreezesGain(t *testing.T) {
	a := fastAGC(t)

	l, r := testutil.StereoSine(1000, sr, 0.1, int(sr))
	a.ProcessStereo(l, r)

	// Drop far below the -50 dB gate and let the detector settle.
	l, r = testutil.StereoSine(1000, sr, 0.0001, int(sr))
	a.ProcessStereo(l, r)
	frozen := a.GainDB()

	l, r = testutil.StereoSine(1000, sr, 0.0001, int(2*sr))
	a.ProcessStereo(l, r)
	if g := a.GainDB(); g != frozen {
		t.Fatalf("gain moved below gate: %v -> %v", frozen, g)
	}
}

func TestAGC_PreEmphasisAffectsDetectionOnly(t *testing.T) {
	plain := fastAGC(t)
	emph := fastAGC(t)
	p := emph.Params()
	p.PreEmphasis = Emphasis75us
	if err := emph.Configure(p); err != nil {
		t.Fatal(err)
	}

	l1, r1 := testutil.StereoSine(8000, sr, 0.1, int(sr))
	l2, r2 := testutil.StereoSine(8000, sr, 0.1, int(sr))
	in := append([]float64(nil), l2...)
	plain.ProcessStereo(l1, r1)
	emph.ProcessStereo(l2, r2)

	if emph.GainDB() >= plain.GainDB()-3 {
		t.Fatalf("emphasised detector should see HF as louder: plain %v dB, emph %v dB", plain.GainDB(), emph.GainDB())
	}

	// The audio path is scaled, not filtered: out/in is the same on
	// neighbouring samples once the gain has settled.
	n := len(in)
	for i := n - 50; i < n-1; i++ {
		if math.Abs(in[i]) < 0.02 || math.Abs(in[i+1]) < 0.02 {
			continue
		}
		g0, g1 := l2[i]/in[i], l2[i+1]/in[i+1]
		if math.Abs(g0-g1) > 1e-3 {
			t.Fatalf("sample %d: gain ratio jumps %v -> %v, output path looks filtered", i, g0, g1)
		}
	}
}

func TestAGC_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AGCParams)
	}{
		{"gate too low", func(p *AGCParams) { p.GateDB = -81 }},
		{"max gain too high", func(p *AGCParams) { p.MaxGainDB = 31 }},
		{"target positive", func(p *AGCParams) { p.TargetDB = 1 }},
		{"attack zero", func(p *AGCParams) { p.AttackMs = 0 }},
		{"release too long", func(p *AGCParams) { p.ReleaseMs = 40000 }},
		{"bad emphasis", func(p *AGCParams) { p.PreEmphasis = 7 }},
		{"NaN target", func(p *AGCParams) { p.TargetDB = math.NaN() }},
	}
	a := fastAGC(t)
	before := a.Params()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := before
			tt.mutate(&p)
			if err := a.Configure(p); err == nil {
				t.Fatal("expected error")
			}
			if a.Params() != before {
				t.Fatal("rejected params were applied")
			}
		})
	}
}
