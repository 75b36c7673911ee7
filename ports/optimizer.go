package ports

import "context"

// Objective is a scalar loss over a parameter vector.
type Objective func(x []float64) float64

// OptimizeResult is the outcome of one minimization.
type OptimizeResult struct {
	X         []float64
	Loss      float64
	Converged bool
	Evals     int
}

// Bounds is a per-parameter box constraint.
type Bounds struct {
	Lower []float64
	Upper []float64
}

// LocalOptimizer refines parameters from an initial guess using derivative
// information. Fast, but sensitive to noise and initialization.
type LocalOptimizer interface {
	Minimize(ctx context.Context, obj Objective, init []float64, bounds Bounds) (OptimizeResult, error)
}

// GlobalOptimizer explores the full bounded parameter space stochastically,
// without relying on a good starting guess or smooth gradients.
type GlobalOptimizer interface {
	Minimize(ctx context.Context, obj Objective, bounds Bounds) (OptimizeResult, error)
}
