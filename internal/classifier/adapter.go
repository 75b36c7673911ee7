// Package classifier marshals feature vectors into the external model's
// input shape and validates the returned distribution. It holds no
// lensing-domain logic; the model itself is a black box behind ports.Model.
package classifier

import (
	"fmt"

	"microlens/domain/classify"
	"microlens/internal/errors"
	"microlens/internal/features"
	"microlens/ports"
)

// Adapter bridges the feature engine and an external classification model.
type Adapter struct {
	model ports.Model
}

// NewAdapter wraps an external model. The model's class list is checked once
// here rather than on every prediction.
func NewAdapter(model ports.Model) (*Adapter, error) {
	if model == nil {
		return nil, errors.ModelInvocation("classification model is nil", nil)
	}
	classes := model.Classes()
	if len(classes) != len(classify.Labels()) {
		return nil, errors.ModelInvocation(fmt.Sprintf(
			"model declares %d classes, pipeline expects %d", len(classes), len(classify.Labels())), nil)
	}
	for _, c := range classes {
		if _, err := classify.ParseLabel(c); err != nil {
			return nil, errors.ModelInvocation("model declares unknown class", err)
		}
	}
	return &Adapter{model: model}, nil
}

// Classify lays the vector out in catalogue order, invokes the model, and
// validates the returned label and probabilities.
func (a *Adapter) Classify(vector features.Vector) (*classify.Result, error) {
	input, err := vector.Slice()
	if err != nil {
		return nil, errors.ModelInvocation("feature vector does not match catalogue", err)
	}

	pred, err := a.model.Predict(input)
	if err != nil {
		return nil, errors.ModelInvocation("classification model unavailable", err)
	}

	label, err := classify.ParseLabel(pred.Label)
	if err != nil {
		return nil, errors.ModelInvocation("model returned unknown label", err)
	}

	classes := a.model.Classes()
	if len(pred.Probabilities) != len(classes) {
		return nil, errors.ModelInvocation(fmt.Sprintf(
			"model returned %d probabilities for %d classes", len(pred.Probabilities), len(classes)), nil)
	}

	probs := make(map[classify.Label]float64, len(classes))
	for i, c := range classes {
		l, _ := classify.ParseLabel(c) // validated in NewAdapter
		probs[l] = pred.Probabilities[i]
	}
	if err := classify.ValidateProbabilities(probs); err != nil {
		return nil, errors.ModelInvocation("model returned malformed probabilities", err)
	}

	return &classify.Result{Label: label, Probabilities: probs}, nil
}
