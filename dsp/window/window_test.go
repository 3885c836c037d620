package window

import (
	"math"
	"testing"
)

func TestGoldenVectorsHann(t *testing.T) {
	hannExpected := []float64{
		0.0, 0.1882550990706332, 0.6112604669781572, 0.9504844339512095,
		0.9504844339512095, 0.6112604669781573, 0.1882550990706333, 0.0,
	}

	checkGolden(t, Generate(TypeHann, 8), hannExpected, 1e-10)
}

func TestPeriodicDiffersFromSymmetric(t *testing.T) {
	a := Generate(TypeHann, 16)
	b := Generate(TypeHann, 16, WithPeriodic())
	if a[15] != 0 {
		t.Fatalf("symmetric Hann last sample = %v, want 0", a[15])
	}
	if b[15] == 0 {
		t.Fatal("periodic Hann should not end on zero")
	}
	if !almostEqual(b[8], 1, 1e-15) {
		t.Fatalf("periodic Hann midpoint = %v, want 1", b[8])
	}
}

func TestSqrtHann_SquaresToHann(t *testing.T) {
	const n = 64
	s, err := SqrtHann(n)
	if err != nil {
		t.Fatal(err)
	}
	h := Generate(TypeHann, n, WithPeriodic())
	for i := range s {
		if !almostEqual(s[i]*s[i], h[i], 1e-12) {
			t.Fatalf("index %d: sqrt^2=%v hann=%v", i, s[i]*s[i], h[i])
		}
	}
}

func TestOverlapAddGain_SqrtHannHalfOverlap(t *testing.T) {
	s, _ := SqrtHann(1024)

	gain, dev, err := OverlapAddGain(s, s, 512)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(gain, 1, 1e-12) || dev > 1e-12 {
		t.Fatalf("gain=%v deviation=%v, want 1 and 0", gain, dev)
	}

	// Symmetric Hann is not COLA at 50% hop.
	h := Generate(TypeHann, 1024)
	ones := Generate(TypeRectangular, 1024)
	if _, dev, _ := OverlapAddGain(h, ones, 512); dev < 1e-6 {
		t.Fatalf("symmetric Hann unexpectedly COLA: deviation=%v", dev)
	}
}

func TestApplyCoefficientsInPlace(t *testing.T) {
	buf := []float64{1, 2, 3, 4}
	if err := ApplyCoefficientsInPlace(buf, []float64{0.5, 0.5, 2, 0}); err != nil {
		t.Fatal(err)
	}
	checkGolden(t, buf, []float64{0.5, 1, 6, 0}, 1e-15)
}

func TestValidationAndEdgeCases(t *testing.T) {
	if w := Generate(TypeHann, 0); w != nil {
		t.Fatalf("expected nil for zero length, got %v", w)
	}
	if _, err := SqrtHann(0); err == nil {
		t.Fatal("expected error for zero-length SqrtHann")
	}
	if _, err := SqrtHann(-1); err == nil {
		t.Fatal("expected error for negative-length SqrtHann")
	}
	if w := Generate(TypeHann, 1); len(w) != 1 || w[0] != 0 {
		t.Fatalf("single-sample Hann = %v", w)
	}

	if err := ApplyCoefficientsInPlace([]float64{1, 2}, []float64{1}); err == nil {
		t.Fatal("expected mismatch error")
	}
	if _, _, err := OverlapAddGain(nil, nil, 1); err == nil {
		t.Fatal("expected empty error")
	}
	if _, _, err := OverlapAddGain([]float64{1, 1}, []float64{1, 1}, 3); err == nil {
		t.Fatal("expected hop error")
	}
}

func checkGolden(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("len mismatch got=%d want=%d", len(got), len(want))
	}

	for i := range got {
		if !almostEqual(got[i], want[i], tol) {
			t.Fatalf("index %d: got=%.16f want=%.16f", i, got[i], want[i])
		}
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
