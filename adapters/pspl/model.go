// Package pspl implements the point-source-point-lens magnification model
// behind the ports.LensModel capability. It is the simplest microlensing
// model: a single lens, a single source, rectilinear relative motion.
package pspl

import (
	"math"
)

// Model evaluates the PSPL magnitude curve. BlendRatio is the flux ratio of
// unlensed blend light to source light; 0 means an unblended source.
type Model struct {
	BlendRatio float64
}

// NewModel returns an unblended PSPL model.
func NewModel() *Model {
	return &Model{}
}

// NewBlendedModel returns a PSPL model with the given blend flux ratio.
func NewBlendedModel(blendRatio float64) *Model {
	if blendRatio < 0 {
		blendRatio = 0
	}
	return &Model{BlendRatio: blendRatio}
}

// Magnification returns the point-lens amplification at source-lens
// separation u (in Einstein radii).
func Magnification(u float64) float64 {
	if u <= 0 {
		// formally infinite at u=0; cap via a tiny separation
		u = 1e-8
	}
	u2 := u * u
	return (u2 + 2) / (u * math.Sqrt(u2+4))
}

// Evaluate returns the predicted magnitude at each epoch for trial
// parameters (t0, u0, tE), anchored to baselineMag out of event.
func (m *Model) Evaluate(t0, u0, tE, baselineMag float64, times []float64) []float64 {
	out := make([]float64, len(times))
	if tE == 0 {
		tE = 1e-8
	}
	g := m.BlendRatio
	for i, t := range times {
		tau := (t - t0) / tE
		u := math.Sqrt(u0*u0 + tau*tau)
		amp := Magnification(u)
		// blend light dilutes the observed amplification
		observed := (amp + g) / (1 + g)
		out[i] = baselineMag - 2.5*math.Log10(observed)
	}
	return out
}
