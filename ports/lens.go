package ports

// LensModel is the capability boundary for the physical lensing model.
// Given trial PSPL parameters and an epoch grid it returns the predicted
// magnitude at each epoch. Implementations must be pure and safe for
// concurrent use: the optimizer loss function calls Evaluate many times.
type LensModel interface {
	// Evaluate returns one predicted magnitude per entry of times.
	// baselineMag is the out-of-event brightness the prediction is anchored to.
	Evaluate(t0, u0, tE, baselineMag float64, times []float64) []float64
}
