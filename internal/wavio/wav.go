// Package wavio decodes deck audio and writes the rendered bus as a
// 16-bit stereo WAV file.
package wavio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	// ErrNotWAV is returned for input that is not a RIFF/WAVE file.
	ErrNotWAV = errors.New("wavio: not a WAV file")
	// ErrFormat is returned for layouts the decoder cannot convert.
	ErrFormat = errors.New("wavio: unsupported WAV format")
)

// Stereo is a decoded file with samples normalised to [-1, 1].
type Stereo struct {
	SampleRate  int
	Left, Right []float64
}

// Frames returns the number of frames.
func (s *Stereo) Frames() int { return len(s.Left) }

// Read decodes the WAV file at path.
func Read(path string) (*Stereo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavio: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Decode reads integer PCM of 8 to 32 bits. Mono is copied to both
// channels; channels beyond the second are ignored.
func Decode(r io.ReadSeeker) (*Stereo, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavio: decode: %w", err)
	}
	// 8-bit WAV samples are unsigned around 128.
	bias := 0
	if dec.BitDepth == 8 {
		bias = 128
	}
	return fromPCM(buf, int(dec.BitDepth), bias)
}

// fromPCM normalises integer samples of the given bit depth after
// subtracting bias.
func fromPCM(buf *audio.IntBuffer, bitDepth, bias int) (*Stereo, error) {
	if buf.Format == nil || buf.Format.NumChannels < 1 || buf.Format.SampleRate <= 0 {
		return nil, ErrFormat
	}

	scale, err := fullScale(bitDepth)
	if err != nil {
		return nil, err
	}

	chans := buf.Format.NumChannels
	frames := len(buf.Data) / chans
	s := &Stereo{
		SampleRate: buf.Format.SampleRate,
		Left:       make([]float64, frames),
		Right:      make([]float64, frames),
	}
	for i := range frames {
		frame := buf.Data[i*chans : (i+1)*chans]
		s.Left[i] = float64(frame[0]-bias) / scale
		if chans > 1 {
			s.Right[i] = float64(frame[1]-bias) / scale
		} else {
			s.Right[i] = s.Left[i]
		}
	}

	return s, nil
}

func fullScale(bits int) (float64, error) {
	switch bits {
	case 8:
		return 128, nil
	case 16:
		return 32768, nil
	case 24:
		return 8388608, nil
	case 32:
		return 2147483648, nil
	default:
		return 0, fmt.Errorf("%w: %d-bit samples", ErrFormat, bits)
	}
}

// Write encodes s as a 16-bit file at path.
func Write(path string, s *Stereo, q *Quantizer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: %w", err)
	}
	if err := Encode(f, s, q); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// Encode writes s as 16-bit stereo PCM. Samples are quantised by q; a nil
// q rounds without dither.
func Encode(w io.WriteSeeker, s *Stereo, q *Quantizer) error {
	if q == nil {
		q = NewQuantizer(0, false)
	}

	frames := s.Frames()
	data := make([]int, 2*frames)
	for i := range frames {
		data[2*i] = q.Quantize(s.Left[i])
		data[2*i+1] = q.Quantize(s.Right[i])
	}

	enc := wav.NewEncoder(w, s.SampleRate, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: s.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavio: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavio: encode: %w", err)
	}
	return nil
}
