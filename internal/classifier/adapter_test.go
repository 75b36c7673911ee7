package classifier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microlens/domain/classify"
	"microlens/internal/errors"
	"microlens/internal/features"
	"microlens/internal/testkit"
	"microlens/ports"
)

func extractedVector(t *testing.T) features.Vector {
	t.Helper()
	return features.NewEngine().Extract(testkit.FlatCurve(testkit.DefaultCurveSpec()))
}

func TestClassifyHappyPath(t *testing.T) {
	model := &testkit.StubModel{
		Prediction: testkit.FixedPrediction(classify.LabelMicrolensing, 0.9),
	}
	adapter, err := NewAdapter(model)
	require.NoError(t, err)

	result, err := adapter.Classify(extractedVector(t))
	require.NoError(t, err)

	assert.Equal(t, classify.LabelMicrolensing, result.Label)
	assert.NoError(t, classify.ValidateProbabilities(result.Probabilities))
	assert.InDelta(t, 0.9, result.Probabilities[classify.LabelMicrolensing], 1e-12)
}

func TestClassifyModelUnavailable(t *testing.T) {
	model := &testkit.StubModel{Err: fmt.Errorf("connection refused")}
	adapter, err := NewAdapter(model)
	require.NoError(t, err)

	_, err = adapter.Classify(extractedVector(t))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeModelInvocation))
}

func TestClassifyMalformedOutput(t *testing.T) {
	tests := []struct {
		name string
		pred ports.Prediction
	}{
		{"unknown label", ports.Prediction{
			Label:         "SUPERNOVA",
			Probabilities: []float64{0.2, 0.2, 0.2, 0.2, 0.2},
		}},
		{"wrong probability count", ports.Prediction{
			Label:         "CONSTANT",
			Probabilities: []float64{0.5, 0.5},
		}},
		{"negative probability", ports.Prediction{
			Label:         "CONSTANT",
			Probabilities: []float64{1.2, -0.2, 0.4, 0.3, 0.3},
		}},
		{"sum far from one", ports.Prediction{
			Label:         "CONSTANT",
			Probabilities: []float64{0.5, 0.2, 0.2, 0.2, 0.2},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := NewAdapter(&testkit.StubModel{Prediction: tt.pred})
			require.NoError(t, err)

			_, err = adapter.Classify(extractedVector(t))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeModelInvocation),
				"expected MODEL_INVOCATION, got %s", errors.GetCode(err))
		})
	}
}

func TestNewAdapterRejectsNilModel(t *testing.T) {
	_, err := NewAdapter(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeModelInvocation))
}

func TestClassifyIncompleteVector(t *testing.T) {
	adapter, err := NewAdapter(&testkit.StubModel{
		Prediction: testkit.FixedPrediction(classify.LabelOther, 0.8),
	})
	require.NoError(t, err)

	_, err = adapter.Classify(features.Vector{"mean": 17.0})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeModelInvocation))
}
