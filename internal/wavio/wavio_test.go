package wavio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-onair/internal/testutil"
)

func TestWriteReadRoundTrip(t *testing.T) {
	const n = 1000
	left, right := testutil.StereoSine(440, 48000, 0.5, n)
	right[10] = -1.5 // limited
	in := &Stereo{SampleRate: 48000, Left: left, Right: right}

	path := filepath.Join(t.TempDir(), "out.wav")
	if err := Write(path, in, nil); err != nil {
		t.Fatal(err)
	}
	out, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}

	if out.SampleRate != 48000 || out.Frames() != n {
		t.Fatalf("read %d frames at %d Hz", out.Frames(), out.SampleRate)
	}
	const lsb = 1.0 / 32768
	for i := range n {
		want := math.Max(-1, in.Right[i])
		if math.Abs(out.Left[i]-in.Left[i]) > lsb || math.Abs(out.Right[i]-want) > lsb {
			t.Fatalf("frame %d = (%g, %g), want (%g, %g)", i, out.Left[i], out.Right[i], in.Left[i], want)
		}
	}
}

func TestReadRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("this is not a RIFF file at all, really"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); !errors.Is(err, ErrNotWAV) {
		t.Fatalf("error = %v, want ErrNotWAV", err)
	}
}

// wav8 builds a mono 8-bit WAV file holding samples.
func wav8(rate int, samples []byte) []byte {
	var b bytes.Buffer
	le := func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }

	b.WriteString("RIFF")
	le(uint32(36 + len(samples)))
	b.WriteString("WAVEfmt ")
	le(uint32(16))
	le(uint16(1)) // PCM
	le(uint16(1))
	le(uint32(rate))
	le(uint32(rate))
	le(uint16(1))
	le(uint16(8))
	b.WriteString("data")
	le(uint32(len(samples)))
	b.Write(samples)
	return b.Bytes()
}

func TestDecode8BitIsCentred(t *testing.T) {
	samples := []byte{128, 128, 0, 255, 192, 64, 128}
	want := []float64{0, 0, -1, 127.0 / 128, 0.5, -0.5, 0}

	s, err := Decode(bytes.NewReader(wav8(8000, samples)))
	if err != nil {
		t.Fatal(err)
	}
	if s.SampleRate != 8000 || s.Frames() != len(want) {
		t.Fatalf("decoded %d frames at %d Hz", s.Frames(), s.SampleRate)
	}
	testutil.RequireSliceNearlyEqual(t, s.Left, want, 1e-12)
	testutil.RequireSliceNearlyEqual(t, s.Right, want, 1e-12)
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{0.5, 16384},
		{-0.5, -16384},
		{1, 32767},
		{-1, -32768},
		{3, 32767},
		{-3, -32768},
		{math.NaN(), 0},
	}
	q := NewQuantizer(1, false)
	for _, tt := range tests {
		if got := q.Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%g) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestQuantizeDither(t *testing.T) {
	q := NewQuantizer(42, true)
	const x = 0.25
	sum := 0
	const n = 20000
	for range n {
		v := q.Quantize(x)
		if v < 8191 || v > 8193 {
			t.Fatalf("dithered value %d more than one LSB away", v)
		}
		sum += v
	}
	if mean := float64(sum) / n; math.Abs(mean-8192) > 0.05 {
		t.Fatalf("dither is biased: mean %g", mean)
	}

	a, b := NewQuantizer(7, true), NewQuantizer(7, true)
	for range 100 {
		if a.Quantize(0.1) != b.Quantize(0.1) {
			t.Fatal("same seed gives different noise")
		}
	}
}

func TestResample(t *testing.T) {
	const (
		inRate  = 44100
		outRate = 48000
		freq    = 1000.0
		amp     = 0.5
	)
	left, right := testutil.StereoSine(freq, inRate, amp, inRate/10)
	out, err := Resample(&Stereo{SampleRate: inRate, Left: left, Right: right}, outRate)
	if err != nil {
		t.Fatal(err)
	}

	if out.SampleRate != outRate || out.Frames() != outRate/10 {
		t.Fatalf("resampled to %d frames at %d Hz", out.Frames(), out.SampleRate)
	}
	// Skip the filter edges.
	for k := 200; k < out.Frames()-200; k++ {
		want := amp * math.Sin(2*math.Pi*freq*float64(k)/outRate)
		if math.Abs(out.Left[k]-want) > 5e-3 {
			t.Fatalf("sample %d = %g, want %g", k, out.Left[k], want)
		}
	}
}

func TestResampleSameRate(t *testing.T) {
	s := &Stereo{SampleRate: 48000, Left: []float64{1}, Right: []float64{2}}
	out, err := Resample(s, 48000)
	if err != nil || out != s {
		t.Fatalf("same-rate resample = %v, %v", out, err)
	}
	if _, err := Resample(s, 0); err == nil {
		t.Fatal("expected error for zero rate")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	left, right := testutil.StereoSine(440, 22050, 0.25, 500)
	wavPath := filepath.Join(dir, "deck.WAV")
	if err := Write(wavPath, &Stereo{SampleRate: 22050, Left: left, Right: right}, nil); err != nil {
		t.Fatal(err)
	}
	s, err := Load(wavPath)
	if err != nil {
		t.Fatal(err)
	}
	if s.SampleRate != 22050 || s.Frames() != 500 {
		t.Fatalf("loaded %d frames at %d Hz", s.Frames(), s.SampleRate)
	}

	garbage := []byte("OggS but not really an ogg vorbis stream")
	tests := []struct {
		name string
		file string
		want error
	}{
		{"unknown extension", "deck.flac", ErrUnknownFormat},
		{"broken vorbis", "deck.ogg", nil},
		{"broken aiff", "deck.aiff", ErrFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, garbage, 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInterleaved(t *testing.T) {
	mono := interleaved([]float32{0.5, -0.25}, 1, 8000)
	if mono.Frames() != 2 || mono.Right[1] != -0.25 {
		t.Fatalf("mono = %+v", mono)
	}
	st := interleaved([]float32{0.5, -0.5, 0.25, -0.25, 1}, 2, 8000)
	if st.Frames() != 2 || st.Left[1] != 0.25 || st.Right[1] != -0.25 {
		t.Fatalf("stereo = %+v", st)
	}
}
