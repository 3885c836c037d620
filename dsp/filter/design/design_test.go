package design

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-onair/dsp/filter/biquad"
)

const tol = 1e-9

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestBiquadDesigners_BasicResponseShape(t *testing.T) {
	sr := 48000.0
	f := 1000.0
	q := 1 / math.Sqrt2

	lp := Lowpass(f, q, sr)
	if !(mag(lp, 100, sr) > mag(lp, 10000, sr)) {
		t.Fatal("lowpass shape check failed")
	}

	hp := Highpass(f, q, sr)
	if !(mag(hp, 10000, sr) > mag(hp, 100, sr)) {
		t.Fatal("highpass shape check failed")
	}

	// Butterworth Q puts the cutoff at -3.01 dB.
	if db := lp.MagnitudeDB(f, sr); !almostEqual(db, -3.0103, 0.01) {
		t.Fatalf("lowpass cutoff gain = %v dB, want -3.01", db)
	}
}

func TestEQDesigners_BasicBehavior(t *testing.T) {
	sr := 48000.0
	f := 1000.0
	q := 1.0

	peakUp := Peak(f, 6, q, sr)
	peakDown := Peak(f, -6, q, sr)
	if !(mag(peakUp, f, sr) > 1 && mag(peakDown, f, sr) < 1) {
		t.Fatal("peak filter gain check failed")
	}
	if db := peakUp.MagnitudeDB(f, sr); !almostEqual(db, 6, 1e-6) {
		t.Fatalf("peak gain at centre = %v dB, want 6", db)
	}

	ls := LowShelf(500, 6, q, sr)
	if !(mag(ls, 100, sr) > mag(ls, 10000, sr)) {
		t.Fatal("low shelf tilt check failed")
	}
	if db := ls.MagnitudeDB(5, sr); !almostEqual(db, 6, 0.05) {
		t.Fatalf("low shelf gain near DC = %v dB, want 6", db)
	}

	hs := HighShelf(4000, 6, q, sr)
	if !(mag(hs, 10000, sr) > mag(hs, 100, sr)) {
		t.Fatal("high shelf tilt check failed")
	}
}

func TestPeak_ZeroGainIsFlat(t *testing.T) {
	sr := 48000.0
	c := Peak(1000, 0, 2, sr)
	for _, hz := range []float64{20, 200, 1000, 5000, 18000} {
		if db := c.MagnitudeDB(hz, sr); !almostEqual(db, 0, 1e-9) {
			t.Fatalf("0 dB peak at %v Hz = %v dB", hz, db)
		}
	}
}

func TestDesigners_ValidateAcrossSampleRates(t *testing.T) {
	for _, sr := range []float64{44100, 48000, 96000, 192000} {
		for _, c := range []biquad.Coefficients{
			Lowpass(1000, 0.707, sr),
			Highpass(1000, 0.707, sr),
			Peak(1000, 3, 1.0, sr),
			Allpass(1000, 0.707, sr),
			LowShelf(300, 6, 1.0, sr),
			HighShelf(3000, -6, 1.0, sr),
			PreEmphasis(Emphasis50us, sr),
			PreEmphasis(Emphasis75us, sr),
		} {
			assertFiniteCoefficients(t, c)
			assertStableSection(t, c)
		}
	}
}

func TestButterworthQ_KnownValues(t *testing.T) {
	if q := ButterworthQ(2, 0); !almostEqual(q, 1/math.Sqrt2, 1e-12) {
		t.Fatalf("ButterworthQ(2,0) = %v, want %v", q, 1/math.Sqrt2)
	}
	// Fourth-order prototype: 0.5412 and 1.3066.
	if q := ButterworthQ(4, 0); !almostEqual(q, 1.3065629648763766, 1e-12) {
		t.Fatalf("ButterworthQ(4,0) = %v", q)
	}
	if q := ButterworthQ(4, 1); !almostEqual(q, 0.5411961001461970, 1e-12) {
		t.Fatalf("ButterworthQ(4,1) = %v", q)
	}
}

func TestLinkwitzRiley4_AllpassSum(t *testing.T) {
	sr := 48000.0
	fc := 1600.0

	lp, hp, ok := LinkwitzRiley4(fc, sr)
	if !ok {
		t.Fatal("LinkwitzRiley4 failed")
	}

	lpChain := biquad.NewChain(lp[:]...)
	hpChain := biquad.NewChain(hp[:]...)

	if db := lpChain.MagnitudeDB(fc, sr); !almostEqual(db, -6.0206, 0.01) {
		t.Fatalf("LP at crossover = %v dB, want -6.02", db)
	}
	if db := hpChain.MagnitudeDB(fc, sr); !almostEqual(db, -6.0206, 0.01) {
		t.Fatalf("HP at crossover = %v dB, want -6.02", db)
	}

	for _, hz := range []float64{20, 200, 800, 1600, 3200, 10000, 20000} {
		sum := lpChain.Response(hz, sr) + hpChain.Response(hz, sr)
		if m := cmplx.Abs(sum); !almostEqual(m, 1, 1e-6) {
			t.Errorf("|LP+HP| at %v Hz = %v, want 1", hz, m)
		}
	}
}

func TestLinkwitzRiley4Allpass_MatchesSum(t *testing.T) {
	sr := 48000.0
	fc := 400.0

	lp, hp, _ := LinkwitzRiley4(fc, sr)
	ap := LinkwitzRiley4Allpass(fc, sr)
	lpChain := biquad.NewChain(lp[:]...)
	hpChain := biquad.NewChain(hp[:]...)

	for _, hz := range []float64{30, 100, 400, 1000, 8000} {
		sum := lpChain.Response(hz, sr) + hpChain.Response(hz, sr)
		if d := cmplx.Abs(sum - ap.Response(hz, sr)); d > 1e-9 {
			t.Errorf("allpass mismatch at %v Hz: |diff| = %v", hz, d)
		}
	}
}

func TestLinkwitzRiley4_Invalid(t *testing.T) {
	if _, _, ok := LinkwitzRiley4(0, 48000); ok {
		t.Fatal("expected failure for zero frequency")
	}
	if _, _, ok := LinkwitzRiley4(30000, 48000); ok {
		t.Fatal("expected failure above Nyquist")
	}
}

func TestPreEmphasis_Shape(t *testing.T) {
	sr := 48000.0
	tests := []struct {
		name   string
		tau    float64
		zeroHz float64
	}{
		{"50us", Emphasis50us, 3183.1},
		{"75us", Emphasis75us, 2122.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := PreEmphasis(tt.tau, sr)
			if c.B2 != 0 || c.A2 != 0 {
				t.Fatalf("expected first-order section, got %#v", c)
			}
			if db := c.MagnitudeDB(1, sr); !almostEqual(db, 0, 0.01) {
				t.Fatalf("DC gain = %v dB, want 0", db)
			}
			// Around +3 dB at the zero frequency.
			if db := c.MagnitudeDB(tt.zeroHz, sr); db < 2.5 || db > 3.5 {
				t.Fatalf("gain at %v Hz = %v dB, want ~3", tt.zeroHz, db)
			}
			if !(c.MagnitudeDB(10000, sr) > c.MagnitudeDB(tt.zeroHz, sr)) {
				t.Fatal("shelf does not keep rising above the zero")
			}
		})
	}

	if db75, db50 := PreEmphasis(Emphasis75us, sr).MagnitudeDB(10000, sr), PreEmphasis(Emphasis50us, sr).MagnitudeDB(10000, sr); db75 <= db50 {
		t.Fatalf("75 us boost (%v dB) should exceed 50 us boost (%v dB) at 10 kHz", db75, db50)
	}
}

func TestInvalidInputs(t *testing.T) {
	if got := Lowpass(1000, 0.707, 0); got != (biquad.Coefficients{}) {
		t.Fatalf("expected zero coefficients for invalid sample rate, got %#v", got)
	}
	if got := Highpass(0, 0.707, 48000); got != (biquad.Coefficients{}) {
		t.Fatalf("expected zero coefficients for invalid frequency, got %#v", got)
	}
	if got := PreEmphasis(0, 48000); !got.IsZero() {
		t.Fatalf("expected zero coefficients for tau=0, got %#v", got)
	}
	_ = Peak(1000, 3, 0, 48000) // q<=0 path uses defaultQ
	_ = LowShelf(1000, 3, 0, 48000)
	_ = HighShelf(1000, 3, 0, 48000)
}

func mag(c biquad.Coefficients, freq, sr float64) float64 {
	return cmplx.Abs(c.Response(freq, sr))
}

func assertFiniteCoefficients(t *testing.T, c biquad.Coefficients) {
	t.Helper()
	v := []float64{c.B0, c.B1, c.B2, c.A1, c.A2}
	for i := range v {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			t.Fatalf("invalid coefficient[%d]=%v", i, v[i])
		}
	}
}

func assertStableSection(t *testing.T, c biquad.Coefficients) {
	t.Helper()
	r1, r2 := sectionRoots(c)
	if cmplx.Abs(r1) >= 1+tol || cmplx.Abs(r2) >= 1+tol {
		t.Fatalf("unstable poles: |r1|=%v |r2|=%v coeff=%#v", cmplx.Abs(r1), cmplx.Abs(r2), c)
	}
}

func sectionRoots(c biquad.Coefficients) (complex128, complex128) {
	disc := complex(c.A1*c.A1-4*c.A2, 0)
	sqrtDisc := cmplx.Sqrt(disc)
	r1 := (-complex(c.A1, 0) + sqrtDisc) / 2
	r2 := (-complex(c.A1, 0) - sqrtDisc) / 2
	return r1, r2
}
