// Package testkit provides synthetic lightcurve fixtures and deterministic
// fakes for the classification and optimizer ports. Everything here is
// seeded, so test runs are reproducible.
package testkit

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"microlens/domain/classify"
	"microlens/domain/lightcurve"
	"microlens/internal/features"
	"microlens/ports"
)

// CurveSpec controls synthetic lightcurve generation.
type CurveSpec struct {
	N        int
	Start    float64
	Cadence  float64
	Baseline float64
	MagErr   float64
	NoiseSig float64 // Gaussian noise sigma, 0 for noise-free
	Seed     uint64
}

// DefaultCurveSpec returns a 100-epoch daily-cadence curve at 17th magnitude.
func DefaultCurveSpec() CurveSpec {
	return CurveSpec{
		N:        100,
		Start:    0,
		Cadence:  1.0,
		Baseline: 17.0,
		MagErr:   0.05,
		NoiseSig: 0.02,
		Seed:     42,
	}
}

func (s CurveSpec) noise() func() float64 {
	if s.NoiseSig <= 0 {
		return func() float64 { return 0 }
	}
	dist := distuv.Normal{Mu: 0, Sigma: s.NoiseSig, Src: rand.NewSource(s.Seed)}
	return dist.Rand
}

// FlatCurve builds a constant-brightness curve plus Gaussian noise.
func FlatCurve(spec CurveSpec) *lightcurve.LightCurve {
	noise := spec.noise()
	times := make([]float64, spec.N)
	mags := make([]float64, spec.N)
	errs := make([]float64, spec.N)
	for i := 0; i < spec.N; i++ {
		times[i] = spec.Start + float64(i)*spec.Cadence
		mags[i] = spec.Baseline + noise()
		errs[i] = spec.MagErr
	}
	return mustCurve(times, mags, errs)
}

// PSPLCurve builds a microlensing curve: flat baseline with a single smooth
// point-lens brightening at t0.
func PSPLCurve(spec CurveSpec, t0, u0, tE float64) *lightcurve.LightCurve {
	noise := spec.noise()
	times := make([]float64, spec.N)
	mags := make([]float64, spec.N)
	errs := make([]float64, spec.N)
	for i := 0; i < spec.N; i++ {
		t := spec.Start + float64(i)*spec.Cadence
		times[i] = t
		mags[i] = PSPLMagnitude(spec.Baseline, t, t0, u0, tE) + noise()
		errs[i] = spec.MagErr
	}
	return mustCurve(times, mags, errs)
}

// SinusoidCurve builds a periodic pulsator-like curve.
func SinusoidCurve(spec CurveSpec, amplitude, period float64) *lightcurve.LightCurve {
	noise := spec.noise()
	times := make([]float64, spec.N)
	mags := make([]float64, spec.N)
	errs := make([]float64, spec.N)
	for i := 0; i < spec.N; i++ {
		t := spec.Start + float64(i)*spec.Cadence
		times[i] = t
		mags[i] = spec.Baseline + amplitude*math.Sin(2*math.Pi*t/period) + noise()
		errs[i] = spec.MagErr
	}
	return mustCurve(times, mags, errs)
}

// PSPLMagnitude evaluates the unblended point-lens magnitude at epoch t.
func PSPLMagnitude(baseline, t, t0, u0, tE float64) float64 {
	tau := (t - t0) / tE
	u := math.Sqrt(u0*u0 + tau*tau)
	amp := (u*u + 2) / (u * math.Sqrt(u*u+4))
	return baseline - 2.5*math.Log10(amp)
}

func mustCurve(times, mags, errs []float64) *lightcurve.LightCurve {
	lc, err := lightcurve.New(times, mags, errs, 0)
	if err != nil {
		panic(fmt.Sprintf("testkit: bad synthetic curve: %v", err))
	}
	return lc
}

// StubModel returns a fixed prediction, or a fixed error when Err is set.
type StubModel struct {
	Prediction ports.Prediction
	Err        error
}

func (s *StubModel) Predict(features []float64) (ports.Prediction, error) {
	if s.Err != nil {
		return ports.Prediction{}, s.Err
	}
	return s.Prediction, nil
}

func (s *StubModel) Classes() []string {
	classes := make([]string, 0, len(classify.Labels()))
	for _, l := range classify.Labels() {
		classes = append(classes, l.String())
	}
	return classes
}

// FixedPrediction builds a prediction favoring the given label with the
// remaining mass spread evenly.
func FixedPrediction(label classify.Label, confidence float64) ports.Prediction {
	labels := classify.Labels()
	rest := (1.0 - confidence) / float64(len(labels)-1)
	probs := make([]float64, len(labels))
	for i, l := range labels {
		if l == label {
			probs[i] = confidence
		} else {
			probs[i] = rest
		}
	}
	return ports.Prediction{Label: label.String(), Probabilities: probs}
}

// RuleModel is a deterministic stand-in for the trained ensemble, good
// enough for end-to-end pipeline tests: it separates flat curves from
// single-bump brightenings using the same features a real model consumes.
type RuleModel struct{}

func (r *RuleModel) Predict(input []float64) (ports.Prediction, error) {
	names := features.Names()
	if len(input) != len(names) {
		return ports.Prediction{}, fmt.Errorf("expected %d features, got %d", len(names), len(input))
	}
	byName := make(map[string]float64, len(names))
	for i, n := range names {
		byName[n] = input[i]
	}

	var label classify.Label
	switch {
	case byName[features.FeatChi2Reduced] < 2.0:
		label = classify.LabelConstant
	case byName[features.FeatCon] > 0:
		// sustained bright excursion: single smooth event
		label = classify.LabelMicrolensing
	case byName[features.FeatMedianCrossings] > 0.15:
		label = classify.LabelRRLyrae
	default:
		label = classify.LabelOther
	}
	return FixedPrediction(label, 0.85), nil
}

func (r *RuleModel) Classes() []string {
	return (&StubModel{}).Classes()
}

// StubLocalOptimizer returns a canned result.
type StubLocalOptimizer struct {
	Result ports.OptimizeResult
	Err    error
	Calls  int
}

func (s *StubLocalOptimizer) Minimize(ctx context.Context, obj ports.Objective, init []float64, bounds ports.Bounds) (ports.OptimizeResult, error) {
	s.Calls++
	if s.Err != nil {
		return ports.OptimizeResult{}, s.Err
	}
	return s.Result, nil
}

// StubGlobalOptimizer returns a canned result.
type StubGlobalOptimizer struct {
	Result ports.OptimizeResult
	Err    error
	Calls  int
}

func (s *StubGlobalOptimizer) Minimize(ctx context.Context, obj ports.Objective, bounds ports.Bounds) (ports.OptimizeResult, error) {
	s.Calls++
	if s.Err != nil {
		return ports.OptimizeResult{}, s.Err
	}
	return s.Result, nil
}
