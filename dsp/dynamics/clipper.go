package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-onair/dsp/core"
)

const (
	minCeilingDB = -24.0
	maxCeilingDB = 0.0
)

// Clipper is a hard ceiling: every sample is limited to +/-ceiling.
type Clipper struct {
	ceilingDB float64
	ceiling   float64
}

// NewClipper returns a clipper at 0 dBFS.
func NewClipper() *Clipper {
	return &Clipper{ceilingDB: 0, ceiling: 1}
}

// CheckCeiling reports whether dB is a valid clipper ceiling.
func CheckCeiling(dB float64) error {
	if !core.InRange(dB, minCeilingDB, maxCeilingDB) {
		return fmt.Errorf("clipper ceiling must be in [%g, %g]: %g", minCeilingDB, maxCeilingDB, dB)
	}
	return nil
}

// SetCeiling sets the ceiling in dBFS.
func (c *Clipper) SetCeiling(dB float64) error {
	if err := CheckCeiling(dB); err != nil {
		return err
	}
	if dB != c.ceilingDB {
		c.ceilingDB = dB
		c.ceiling = core.DBToLinear(dB)
	}

	return nil
}

// Ceiling returns the ceiling in dBFS.
func (c *Clipper) Ceiling() float64 { return c.ceilingDB }

// ProcessStereo clips left and right in place.
func (c *Clipper) ProcessStereo(left, right []float64) {
	c.ProcessInPlace(left)
	c.ProcessInPlace(right)
}

// ProcessInPlace clips buf in place.
func (c *Clipper) ProcessInPlace(buf []float64) {
	limit := c.ceiling
	for i, x := range buf {
		if x > limit {
			buf[i] = limit
		} else if x < -limit {
			buf[i] = -limit
		}
	}
}
