// Package lightcurve holds the validated time-series domain type.
// A LightCurve is immutable once built: every downstream stage reads it,
// none may modify it.
package lightcurve

import (
	"fmt"
	"math"
	"sort"

	"microlens/internal/errors"
)

// MinSamplesDefault is the default minimum number of epochs a series must
// contain before any of the catalogue statistics are numerically meaningful.
const MinSamplesDefault = 30

// LightCurve is a validated, time-sorted photometric series. The three
// slices always have equal length and contain only finite values with
// strictly positive errors.
type LightCurve struct {
	time []float64
	mag  []float64
	err  []float64
}

// New validates raw time/magnitude/error arrays and returns an immutable,
// time-sorted LightCurve. minSamples <= 0 falls back to MinSamplesDefault.
//
// Failure modes:
//   - INSUFFICIENT_DATA when fewer than minSamples epochs are supplied
//   - MALFORMED_SERIES on length mismatch, non-finite values, or err <= 0
func New(time, mag, err []float64, minSamples int) (*LightCurve, error) {
	if minSamples <= 0 {
		minSamples = MinSamplesDefault
	}

	if len(time) != len(mag) || len(time) != len(err) {
		return nil, errors.MalformedSeries(fmt.Sprintf(
			"array length mismatch: time=%d mag=%d err=%d", len(time), len(mag), len(err)))
	}
	if len(time) < minSamples {
		return nil, errors.InsufficientData(fmt.Sprintf(
			"lightcurve has %d samples, minimum is %d", len(time), minSamples))
	}

	for i := range time {
		if !isFinite(time[i]) || !isFinite(mag[i]) || !isFinite(err[i]) {
			return nil, errors.MalformedSeries(fmt.Sprintf(
				"non-finite value at index %d", i))
		}
		if err[i] <= 0 {
			return nil, errors.MalformedSeries(fmt.Sprintf(
				"non-positive magnitude error %g at index %d", err[i], i))
		}
	}

	lc := &LightCurve{
		time: append([]float64(nil), time...),
		mag:  append([]float64(nil), mag...),
		err:  append([]float64(nil), err...),
	}
	lc.sortByTime()
	return lc, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// sortByTime re-sorts the three arrays in lockstep by epoch. Input series
// are usually already ordered, so check before paying for the sort.
func (lc *LightCurve) sortByTime() {
	if sort.Float64sAreSorted(lc.time) {
		return
	}
	idx := make([]int, len(lc.time))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return lc.time[idx[a]] < lc.time[idx[b]] })

	st := make([]float64, len(idx))
	sm := make([]float64, len(idx))
	se := make([]float64, len(idx))
	for i, j := range idx {
		st[i] = lc.time[j]
		sm[i] = lc.mag[j]
		se[i] = lc.err[j]
	}
	lc.time, lc.mag, lc.err = st, sm, se
}

// Len returns the number of epochs.
func (lc *LightCurve) Len() int {
	return len(lc.time)
}

// Time returns a copy of the epoch array.
func (lc *LightCurve) Time() []float64 {
	return append([]float64(nil), lc.time...)
}

// Mag returns a copy of the magnitude array.
func (lc *LightCurve) Mag() []float64 {
	return append([]float64(nil), lc.mag...)
}

// Err returns a copy of the magnitude-error array.
func (lc *LightCurve) Err() []float64 {
	return append([]float64(nil), lc.err...)
}

// At returns the sample at index i.
func (lc *LightCurve) At(i int) (t, m, e float64) {
	return lc.time[i], lc.mag[i], lc.err[i]
}

// Span returns the observed time baseline (last epoch minus first).
func (lc *LightCurve) Span() float64 {
	if len(lc.time) == 0 {
		return 0
	}
	return lc.time[len(lc.time)-1] - lc.time[0]
}

// Start returns the first observed epoch.
func (lc *LightCurve) Start() float64 {
	return lc.time[0]
}

// End returns the last observed epoch.
func (lc *LightCurve) End() float64 {
	return lc.time[len(lc.time)-1]
}

// PeakTime returns the epoch of maximum brightness. Magnitudes are inverted
// brightness, so the peak is the minimum magnitude.
func (lc *LightCurve) PeakTime() float64 {
	best := 0
	for i := 1; i < len(lc.mag); i++ {
		if lc.mag[i] < lc.mag[best] {
			best = i
		}
	}
	return lc.time[best]
}
