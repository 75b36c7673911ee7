package optimizers

import (
	"context"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/optimize"

	"microlens/ports"
)

// GlobalStochastic minimizes with CMA-ES over the full bounded box, started
// from the box center with a wide initial step. Appropriate when local
// gradients are unreliable: noisy photometry, sparse sampling, bad seeds.
type GlobalStochastic struct {
	MaxEvaluations int
	Seed           uint64
}

// NewGlobalStochastic builds the fallback optimizer with an evaluation cap.
// The seed makes reruns reproducible.
func NewGlobalStochastic(maxEvaluations int, seed uint64) *GlobalStochastic {
	if maxEvaluations <= 0 {
		maxEvaluations = 5000
	}
	if seed == 0 {
		seed = 1
	}
	return &GlobalStochastic{MaxEvaluations: maxEvaluations, Seed: seed}
}

// Minimize explores bounds without an initial guess. Budget exhaustion is
// non-convergence, not an error.
func (g *GlobalStochastic) Minimize(ctx context.Context, obj ports.Objective, bounds ports.Bounds) (ports.OptimizeResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.OptimizeResult{}, err
	}
	if err := checkBounds(bounds, len(bounds.Lower)); err != nil {
		return ports.OptimizeResult{}, err
	}

	scaled := newScaler(bounds)
	problem := optimize.Problem{Func: scaled.wrap(obj)}

	// the default Converger halts CMA-ES after a handful of unimproved
	// iterations; termination belongs to the method's own distribution
	// collapse check and the evaluation budget
	settings := &optimize.Settings{
		FuncEvaluations: g.MaxEvaluations,
		Converger:       optimize.NeverTerminate{},
	}

	center := make([]float64, len(bounds.Lower))
	for i := range center {
		center[i] = 0.5
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Src:          rand.NewSource(g.Seed),
	}

	result, err := optimize.Minimize(problem, center, settings, method)
	if err != nil && result == nil {
		return ports.OptimizeResult{Converged: false}, nil
	}
	if result != nil {
		// CMA-ES samples a Gaussian and may report a best point outside
		// the unit cube; project it back so X honors the bounds contract
		clampUnit(result.X)
	}
	return toPortResult(scaled, result, err), nil
}

func clampUnit(z []float64) {
	for i := range z {
		if z[i] < 0 {
			z[i] = 0
		}
		if z[i] > 1 {
			z[i] = 1
		}
	}
}
