// Package meter measures the level of a stereo bus block by block.
package meter

import (
	"math"

	"github.com/cwbudde/algo-onair/dsp/core"
)

// FloorDB is reported for silence.
const FloorDB = -120.0

// Reading is a level measurement in dBFS.
type Reading struct {
	PeakDB  float64
	RMSDB   float64
	CrestDB float64
	Clipped int
}

// Meter accumulates peak, energy and clipped samples over both channels.
// The zero value is ready to use.
type Meter struct {
	n       int
	sumSq   float64
	peak    float64
	clipped int
}

// Update adds one block. Samples at or above full scale count as clipped.
func (m *Meter) Update(left, right []float64) {
	m.add(left)
	m.add(right)
}

func (m *Meter) add(buf []float64) {
	for _, x := range buf {
		a := math.Abs(x)
		m.sumSq += x * x
		if a > m.peak {
			m.peak = a
		}
		if a >= 1 {
			m.clipped++
		}
	}
	m.n += len(buf)
}

// Reading returns the levels since the last reset.
func (m *Meter) Reading() Reading {
	if m.n == 0 {
		return Reading{PeakDB: FloorDB, RMSDB: FloorDB}
	}
	ms := m.sumSq / float64(m.n)
	r := Reading{
		PeakDB:  max(core.LinearToDB(m.peak), FloorDB),
		RMSDB:   core.PowerToDB(ms, FloorDB),
		Clipped: m.clipped,
	}
	if ms > 0 {
		r.CrestDB = r.PeakDB - r.RMSDB
	}
	return r
}

// Reset clears the accumulated data.
func (m *Meter) Reset() { *m = Meter{} }
