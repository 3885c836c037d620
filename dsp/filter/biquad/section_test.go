package biquad

import (
	"math"
	"testing"
)

// tolerance for floating-point comparisons.
const eps = 1e-12

func newSection(c Coefficients) *Section { return &Section{Coefficients: c} }

func state(s *Section) [2]float64 { return [2]float64{s.d0, s.d1} }

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// passthrough returns coefficients for a unity gain passthrough (B0=1, all else 0).
func passthrough() Coefficients {
	return Coefficients{B0: 1}
}

// simpleLowpass returns a simple first-order-ish lowpass biquad.
// H(z) = 0.5*(1 + z^-1) / (1 + 0*z^-1 + 0*z^-2) (two-tap average).
func simpleLowpass() Coefficients {
	return Coefficients{B0: 0.5, B1: 0.5}
}

func TestNewSectionIsZeroState(t *testing.T) {
	c := Coefficients{B0: 1, B1: 2, B2: 3, A1: 4, A2: 5}
	s := newSection(c)
	if s.Coefficients != c {
		t.Fatalf("coefficients mismatch: got %v, want %v", s.Coefficients, c)
	}
	if st := state(s); st != [2]float64{0, 0} {
		t.Fatalf("initial state not zero: %v", st)
	}
}

func TestProcessSample_Passthrough(t *testing.T) {
	s := newSection(passthrough())
	input := []float64{1, 0, -1, 0.5, 0.25}
	for i, x := range input {
		y := s.ProcessSample(x)
		if !almostEqual(y, x, eps) {
			t.Errorf("sample %d: got %v, want %v", i, y, x)
		}
	}
}

func TestProcessSample_DFIIT(t *testing.T) {
	// Hand-traced DF-II-T with specific coefficients:
	// B0=0.25, B1=0.5, B2=0.25, A1=-0.2, A2=0.04
	//
	// Step through with x = [1, 0, 0, 0]:
	//
	// n=0: y=0.25*1+0 = 0.25
	//      d0=0.5*1-(-0.2)*0.25+0 = 0.5+0.05 = 0.55
	//      d1=0.25*1-0.04*0.25 = 0.25-0.01 = 0.24
	//
	// n=1: y=0.25*0+0.55 = 0.55
	//      d0=0.5*0-(-0.2)*0.55+0.24 = 0.11+0.24 = 0.35
	//      d1=0.25*0-0.04*0.55 = -0.022
	//
	// n=2: y=0.25*0+0.35 = 0.35
	//      d0=0.5*0-(-0.2)*0.35+(-0.022) = 0.07-0.022 = 0.048
	//      d1=0.25*0-0.04*0.35 = -0.014
	//
	// n=3: y=0.25*0+0.048 = 0.048
	//      d0=0.5*0-(-0.2)*0.048+(-0.014) = 0.0096-0.014 = -0.0044
	//      d1=0.25*0-0.04*0.048 = -0.00192

	c := Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04}
	s := newSection(c)

	want := []float64{0.25, 0.55, 0.35, 0.048}
	for i, w := range want {
		var x float64
		if i == 0 {
			x = 1
		}
		y := s.ProcessSample(x)
		if !almostEqual(y, w, eps) {
			t.Errorf("sample %d: got %.15f, want %.15f", i, y, w)
		}
	}
}

func TestProcessBlock_MatchesSample(t *testing.T) {
	c := Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04}

	// ProcessSample reference
	s1 := newSection(c)
	input := []float64{1, 0.5, -0.3, 0.7, 0, -1, 0.2, 0.8}
	ref := make([]float64, len(input))
	for i, x := range input {
		ref[i] = s1.ProcessSample(x)
	}

	// ProcessBlock
	s2 := newSection(c)
	block := make([]float64, len(input))
	copy(block, input)
	s2.ProcessBlock(block)

	for i := range block {
		if !almostEqual(block[i], ref[i], eps) {
			t.Errorf("sample %d: ProcessBlock=%.15f, ProcessSample=%.15f", i, block[i], ref[i])
		}
	}
}

func TestSetCoefficients_KeepsState(t *testing.T) {
	s := newSection(Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04})
	s.ProcessSample(1)
	before := state(s)

	s.SetCoefficients(simpleLowpass())
	if state(s) != before {
		t.Fatalf("state changed on coefficient update: %v -> %v", before, state(s))
	}
	if s.Coefficients != simpleLowpass() {
		t.Fatalf("coefficients not applied: %v", s.Coefficients)
	}
}

func TestReset(t *testing.T) {
	s := newSection(Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04})
	s.ProcessSample(1)
	if state(s) == [2]float64{} {
		t.Fatal("impulse left no state")
	}

	s.Reset()
	if state(s) != [2]float64{} {
		t.Fatalf("reset did not clear state: %v", state(s))
	}
}

func TestChain_SetCoefficientsKeepsState(t *testing.T) {
	a := Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04}
	ch := NewChain(Identity(), Identity())
	ch.ProcessBlock([]float64{1, 0.5})

	// Extra coefficients are ignored.
	ch.SetCoefficients(a, simpleLowpass(), a)
	if ch.sections[0].Coefficients != a || ch.sections[1].Coefficients != simpleLowpass() {
		t.Fatalf("coefficients not applied: %v", ch.sections)
	}
	if state(&ch.sections[0]) != [2]float64{} {
		t.Fatalf("identity section gained state: %v", state(&ch.sections[0]))
	}

	ch.ProcessBlock([]float64{1})
	ch.Reset()
	for i := range ch.sections {
		if state(&ch.sections[i]) != [2]float64{} {
			t.Fatalf("section %d not reset: %v", i, state(&ch.sections[i]))
		}
	}
}

func TestIdentity(t *testing.T) {
	if Identity() != passthrough() {
		t.Fatalf("Identity() = %v", Identity())
	}
	if !(Coefficients{}).IsZero() || Identity().IsZero() {
		t.Fatal("IsZero mismatch")
	}
}

func TestChain_MatchesSectionCascade(t *testing.T) {
	a := Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04}
	b := simpleLowpass()

	ch := NewChain(a, b)
	s1, s2 := newSection(a), newSection(b)

	input := []float64{1, 0.5, -0.3, 0.7, 0, -1, 0.2, 0.8}
	block := append([]float64(nil), input...)
	ch.ProcessBlock(block)

	for i, x := range input {
		want := s2.ProcessSample(s1.ProcessSample(x))
		if !almostEqual(block[i], want, eps) {
			t.Errorf("sample %d: chain=%.15f, cascade=%.15f", i, block[i], want)
		}
	}
	if len(ch.sections) != 2 {
		t.Fatalf("%d sections, want 2", len(ch.sections))
	}
}

func TestResponse_TwoTapAverage(t *testing.T) {
	c := simpleLowpass()
	const sr = 48000.0

	if db := c.MagnitudeDB(0.001, sr); !almostEqual(db, 0, 1e-6) {
		t.Errorf("DC gain = %v dB, want 0", db)
	}
	// |H| = cos(w/2); at fs/4 that is 1/sqrt(2).
	want := 20 * math.Log10(math.Sqrt(0.5))
	if db := c.MagnitudeDB(sr/4, sr); !almostEqual(db, want, 1e-9) {
		t.Errorf("fs/4 gain = %v dB, want %v", db, want)
	}

	ch := NewChain(c, c)
	if db := ch.MagnitudeDB(sr/4, sr); !almostEqual(db, 2*want, 1e-9) {
		t.Errorf("chain fs/4 gain = %v dB, want %v", db, 2*want)
	}
}
