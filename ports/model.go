package ports

// Prediction is the raw output of an external classification model.
type Prediction struct {
	Label         string
	Probabilities []float64 // one entry per class, in the canonical label order
}

// Model is the capability boundary for the pre-trained classifier. Any
// backend that maps a fixed-length feature vector to a label plus per-class
// probabilities satisfies the pipeline's contract. Implementations must be
// safe for concurrent use once loaded.
type Model interface {
	// Predict classifies a feature vector laid out in the catalogue order.
	Predict(features []float64) (Prediction, error)

	// Classes returns the class names in the order Probabilities follows.
	Classes() []string
}
