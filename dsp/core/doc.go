// Package core holds the small numeric helpers shared by every DSP package:
// dB conversion, clamping, time-constant math and processor options.
package core
