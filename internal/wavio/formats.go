package wavio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// ErrUnknownFormat is returned by Load for unrecognised file extensions.
var ErrUnknownFormat = errors.New("wavio: unknown audio format")

type decodeFunc func(r io.ReadSeeker) (*Stereo, error)

// decoders maps lower-case file extensions to decoders.
var decoders = map[string]decodeFunc{
	".wav":  Decode,
	".wave": Decode,
	".aif":  decodeAIFF,
	".aiff": decodeAIFF,
	".mp3":  decodeMP3,
	".ogg":  decodeVorbis,
	".oga":  decodeVorbis,
}

// Load decodes the file at path, picking the decoder by extension. WAV,
// AIFF, MP3 and Ogg Vorbis are supported.
func Load(path string) (*Stereo, error) {
	dec, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavio: %w", err)
	}
	defer f.Close()

	s, err := dec(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func decodeAIFF(r io.ReadSeeker) (*Stereo, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an AIFF file", ErrFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavio: aiff: %w", err)
	}
	return fromPCM(buf, int(dec.BitDepth), 0)
}

// decodeMP3 reads the whole stream. go-mp3 always produces 16-bit
// little-endian stereo.
func decodeMP3(r io.ReadSeeker) (*Stereo, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("wavio: mp3: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("wavio: mp3: %w", err)
	}
	if dec.SampleRate() <= 0 {
		return nil, ErrFormat
	}

	frames := len(pcm) / 4
	samples := make([]int16, 2*frames)
	if err := binary.Read(bytes.NewReader(pcm[:4*frames]), binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("wavio: mp3: %w", err)
	}

	s := &Stereo{
		SampleRate: dec.SampleRate(),
		Left:       make([]float64, frames),
		Right:      make([]float64, frames),
	}
	for i := range frames {
		s.Left[i] = float64(samples[2*i]) / 32768
		s.Right[i] = float64(samples[2*i+1]) / 32768
	}
	return s, nil
}

func decodeVorbis(r io.ReadSeeker) (*Stereo, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("wavio: vorbis: %w", err)
	}
	if format == nil || format.Channels < 1 || format.SampleRate <= 0 {
		return nil, ErrFormat
	}
	return interleaved(data, format.Channels, format.SampleRate), nil
}

// interleaved splits float frames of chans channels. Mono is copied to
// both sides.
func interleaved(data []float32, chans, rate int) *Stereo {
	frames := len(data) / chans
	s := &Stereo{
		SampleRate: rate,
		Left:       make([]float64, frames),
		Right:      make([]float64, frames),
	}
	for i := range frames {
		frame := data[i*chans : (i+1)*chans]
		s.Left[i] = float64(frame[0])
		s.Right[i] = s.Left[i]
		if chans > 1 {
			s.Right[i] = float64(frame[1])
		}
	}
	return s
}
