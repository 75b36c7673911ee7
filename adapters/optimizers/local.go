// Package optimizers provides gonum-backed implementations of the local and
// global optimizer ports used by the confirmation fit. Both work in
// normalized [0,1] coordinates so the very different parameter scales
// (epochs vs. impact parameter) do not skew step sizes.
package optimizers

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"microlens/ports"
)

// LocalGradient minimizes with BFGS over a finite-difference gradient; the
// chi-square objective has no analytic derivative.
type LocalGradient struct {
	MaxIterations int
}

// NewLocalGradient builds the local stage optimizer with an iteration cap.
func NewLocalGradient(maxIterations int) *LocalGradient {
	if maxIterations <= 0 {
		maxIterations = 500
	}
	return &LocalGradient{MaxIterations: maxIterations}
}

// Minimize refines init inside bounds. A fit that exhausts its iteration
// budget is reported as non-converged, never as an error.
func (l *LocalGradient) Minimize(ctx context.Context, obj ports.Objective, init []float64, bounds ports.Bounds) (ports.OptimizeResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.OptimizeResult{}, err
	}
	if err := checkBounds(bounds, len(init)); err != nil {
		return ports.OptimizeResult{}, err
	}

	scaled := newScaler(bounds)
	fn := scaled.wrap(obj)
	problem := optimize.Problem{
		Func: fn,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, fn, x, nil)
		},
	}
	settings := &optimize.Settings{MajorIterations: l.MaxIterations}

	result, err := optimize.Minimize(problem, scaled.toUnit(init), settings, &optimize.BFGS{})
	if err != nil && result == nil {
		// optimizer infrastructure failure; surfaced as non-convergence
		return ports.OptimizeResult{Converged: false}, nil
	}
	return toPortResult(scaled, result, err), nil
}

// toPortResult maps a gonum result onto the port contract. Statuses that
// merely hit a budget count as non-converged.
func toPortResult(s scaler, result *optimize.Result, err error) ports.OptimizeResult {
	if result == nil {
		return ports.OptimizeResult{Converged: false}
	}
	out := ports.OptimizeResult{
		X:     s.fromUnit(result.X),
		Loss:  result.F,
		Evals: result.Stats.FuncEvaluations,
	}
	if err != nil {
		out.Converged = false
		return out
	}
	switch result.Status {
	case optimize.Success,
		optimize.FunctionThreshold,
		optimize.FunctionConvergence,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		out.Converged = true
	default:
		out.Converged = false
	}
	return out
}

func checkBounds(bounds ports.Bounds, n int) error {
	if len(bounds.Lower) != n || len(bounds.Upper) != n {
		return fmt.Errorf("bounds dimension mismatch: lower=%d upper=%d want %d",
			len(bounds.Lower), len(bounds.Upper), n)
	}
	for i := range bounds.Lower {
		if bounds.Lower[i] >= bounds.Upper[i] {
			return fmt.Errorf("empty bound for parameter %d: [%g, %g]", i, bounds.Lower[i], bounds.Upper[i])
		}
	}
	return nil
}

// scaler maps between physical parameters and the unit cube.
type scaler struct {
	lower []float64
	width []float64
}

func newScaler(bounds ports.Bounds) scaler {
	width := make([]float64, len(bounds.Lower))
	for i := range width {
		width[i] = bounds.Upper[i] - bounds.Lower[i]
	}
	return scaler{lower: bounds.Lower, width: width}
}

func (s scaler) toUnit(x []float64) []float64 {
	z := make([]float64, len(x))
	for i := range x {
		z[i] = (x[i] - s.lower[i]) / s.width[i]
	}
	return z
}

func (s scaler) fromUnit(z []float64) []float64 {
	if z == nil {
		return nil
	}
	x := make([]float64, len(z))
	for i := range z {
		x[i] = s.lower[i] + z[i]*s.width[i]
	}
	return x
}

func (s scaler) wrap(obj ports.Objective) func([]float64) float64 {
	return func(z []float64) float64 {
		return obj(s.fromUnit(z))
	}
}
