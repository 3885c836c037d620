// Package design provides digital IIR filter coefficient designers.
//
// The functions in this package produce biquad coefficients consumable by
// dsp/filter/biquad for runtime processing: RBJ-style lowpass, highpass,
// peaking and shelving sections for the channel EQ, fourth-order
// Linkwitz-Riley pairs for the band-split compressors, and the first-order
// broadcast pre-emphasis shelf used by the AGC detector.
//
// Designers return the zero [biquad.Coefficients] for invalid parameters
// instead of an error so they can be called from the audio path.
package design
