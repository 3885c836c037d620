// Package dynamics implements the level-dependent stages of the channel
// pipeline: the soft-knee band compressor and the multiband and dual-band
// splitters built on it, the broadcast AGC, and the output clipper.
//
// All processors are stereo-linked: one detector drives the gain of both
// sides so the stereo image does not wander. They are single-threaded and
// allocation-free after construction; parameters are changed between
// blocks with Configure methods.
//
// Build with the fastmath tag to route the per-sample log2/exp2 calls of
// the gain computers through github.com/meko-christian/algo-approx.
package dynamics
