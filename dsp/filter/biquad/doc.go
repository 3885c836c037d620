// Package biquad provides biquad (second-order IIR) filter runtime primitives.
//
// A [Section] implements Direct Form II Transposed processing for a single
// second-order section defined by [Coefficients]. [Chain] cascades sections
// for higher-order filters and shelving EQs, and reports the combined
// frequency response.
//
// Coefficient design lives in dsp/filter/design. Nothing in this package
// allocates after construction, so every type is safe to drive from the
// audio cycle.
package biquad
