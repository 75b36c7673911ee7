package centroid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microlens/domain/classify"
)

// trainingFixture builds well-separated two-feature clusters per class.
func trainingFixture() map[classify.Label][][]float64 {
	examples := make(map[classify.Label][][]float64)
	centers := map[classify.Label][]float64{
		classify.LabelConstant:     {0, 0},
		classify.LabelCV:           {10, 0},
		classify.LabelRRLyrae:      {0, 10},
		classify.LabelMicrolensing: {10, 10},
		classify.LabelOther:        {5, 5},
	}
	offsets := [][]float64{{0.1, 0}, {-0.1, 0}, {0, 0.1}, {0, -0.1}}
	for label, c := range centers {
		for _, o := range offsets {
			examples[label] = append(examples[label], []float64{c[0] + o[0], c[1] + o[1]})
		}
	}
	return examples
}

func TestTrainAndPredict(t *testing.T) {
	model, err := Train(trainingFixture())
	require.NoError(t, err)

	pred, err := model.Predict([]float64{9.8, 10.1})
	require.NoError(t, err)

	assert.Equal(t, classify.LabelMicrolensing.String(), pred.Label)
	require.Len(t, pred.Probabilities, 5)

	sum := 0.0
	for _, p := range pred.Probabilities {
		assert.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestTrainRejectsMissingClass(t *testing.T) {
	examples := trainingFixture()
	delete(examples, classify.LabelOther)
	_, err := Train(examples)
	assert.Error(t, err)
}

func TestTrainRejectsRaggedVectors(t *testing.T) {
	examples := trainingFixture()
	examples[classify.LabelCV] = append(examples[classify.LabelCV], []float64{1, 2, 3})
	_, err := Train(examples)
	assert.Error(t, err)
}

func TestPredictDimensionMismatch(t *testing.T) {
	model, err := Train(trainingFixture())
	require.NoError(t, err)

	_, err = model.Predict([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	model, err := Train(trainingFixture())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, model.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	pred1, err := model.Predict([]float64{0.1, 9.9})
	require.NoError(t, err)
	pred2, err := loaded.Predict([]float64{0.1, 9.9})
	require.NoError(t, err)

	assert.Equal(t, pred1.Label, pred2.Label)
	assert.Equal(t, classify.LabelRRLyrae.String(), pred2.Label)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInconsistentModelFile(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{
			"missing scales",
			`{"dim":2,"centroids":{"CONSTANT":[1,2]}}`,
		},
		{
			"scales for wrong class only",
			`{"dim":2,"centroids":{"CONSTANT":[1,2]},"scales":{"CV":[1,1]}}`,
		},
		{
			"centroid dimension mismatch",
			`{"dim":3,"centroids":{"CONSTANT":[1,2]},"scales":{"CONSTANT":[1,1]}}`,
		},
		{
			"scale dimension mismatch",
			`{"dim":2,"centroids":{"CONSTANT":[1,2]},"scales":{"CONSTANT":[1]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.json), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
