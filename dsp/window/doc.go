// Package window generates the analysis and synthesis windows used by the
// short-time Fourier transform in dsp/stem.
package window
