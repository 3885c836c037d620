// Package crossover provides Linkwitz-Riley crossover networks for splitting
// an audio signal into frequency bands.
//
// The [Crossover] type implements a two-way fourth-order Linkwitz-Riley
// network: two cascaded second-order Butterworth sections per side, -6.02 dB
// at the crossover frequency and allpass summation. [MultiBand] chains
// crossovers to split a signal into three or more bands.
//
// Example:
//
//	xo, _ := crossover.New(1000, 48000) // LR4 at 1 kHz
//	lo, hi := xo.ProcessSample(inputSample)
//	sum := lo + hi // allpass-filtered input
package crossover
