package app

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"microlens/adapters/optimizers"
	"microlens/adapters/pspl"
	"microlens/domain/classify"
	"microlens/internal/config"
	apperrors "microlens/internal/errors"
	"microlens/internal/testkit"
	"microlens/ports"
)

func newTestPipeline(t *testing.T, model ports.Model, local ports.LocalOptimizer, global ports.GlobalOptimizer) *Pipeline {
	t.Helper()
	cfg := config.DefaultPipeline()
	p, err := NewPipeline(model, pspl.NewModel(), local, global, cfg, zap.NewNop())
	require.NoError(t, err)
	return p
}

// realOptimizers wires the production fit stack for end-to-end runs.
func realOptimizers() (ports.LocalOptimizer, ports.GlobalOptimizer) {
	cfg := config.DefaultPipeline()
	return optimizers.NewLocalGradient(cfg.LocalMaxIter),
		optimizers.NewGlobalStochastic(cfg.GlobalMaxEvals, cfg.OptimizerSeed)
}

func TestPipelineFlatCurveIsNeverConfirmedMicrolensing(t *testing.T) {
	local, global := realOptimizers()
	p := newTestPipeline(t, &testkit.RuleModel{}, local, global)

	lc := testkit.FlatCurve(testkit.DefaultCurveSpec())
	result, err := p.ClassifyCurve(context.Background(), lc)
	require.NoError(t, err)

	assert.Equal(t, classify.LabelConstant, result.Label)
	assert.False(t, result.Confirmed)
	assert.Empty(t, result.FitAttempts)
	assert.False(t, result.RunID.String() == "")
	assert.False(t, result.CreatedAt.IsZero())
}

func TestPipelineConfirmsCleanMicrolensingEvent(t *testing.T) {
	local, global := realOptimizers()
	p := newTestPipeline(t, &testkit.RuleModel{}, local, global)

	lc := testkit.PSPLCurve(testkit.DefaultCurveSpec(), 50, 0.2, 10)
	result, err := p.ClassifyCurve(context.Background(), lc)
	require.NoError(t, err)

	assert.Equal(t, classify.LabelMicrolensing, result.Label)
	assert.True(t, result.Confirmed)
	require.Len(t, result.FitAttempts, 1)

	attempt := result.FitAttempts[0]
	assert.Equal(t, classify.FitLocalGradient, attempt.Method)
	assert.True(t, attempt.Converged)
	assert.Less(t, attempt.ReducedChiSq, 3.0)
	assert.InDelta(t, 50, attempt.Params.T0, 1.0)
	assert.InDelta(t, 0.2, attempt.Params.U0, 0.1)
	assert.InDelta(t, 10, attempt.Params.TE, 2.0)
}

func TestPipelineRejectedCandidateBecomesOther(t *testing.T) {
	model := &testkit.StubModel{Prediction: testkit.FixedPrediction(classify.LabelMicrolensing, 0.9)}
	local := &testkit.StubLocalOptimizer{Result: ports.OptimizeResult{Converged: false, Loss: math.Inf(1)}}
	global := &testkit.StubGlobalOptimizer{Result: ports.OptimizeResult{Converged: false, Loss: math.Inf(1)}}
	p := newTestPipeline(t, model, local, global)

	lc := testkit.FlatCurve(testkit.DefaultCurveSpec())
	result, err := p.ClassifyCurve(context.Background(), lc)
	require.NoError(t, err)

	assert.Equal(t, classify.LabelOther, result.Label)
	assert.False(t, result.Confirmed)
	assert.Len(t, result.FitAttempts, 2)
	// probabilities report the model's belief even after the override
	assert.InDelta(t, 0.9, result.Probabilities[classify.LabelMicrolensing], 1e-9)
}

func TestPipelineValidatesInput(t *testing.T) {
	local, global := realOptimizers()
	p := newTestPipeline(t, &testkit.RuleModel{}, local, global)

	_, err := p.Classify(context.Background(), []float64{1, 2, 3}, []float64{17, 17, 17}, []float64{0.1, 0.1, 0.1})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientData))
}

func TestPipelineModelFailurePropagates(t *testing.T) {
	model := &testkit.StubModel{Err: errors.New("inference backend down")}
	local, global := realOptimizers()
	p := newTestPipeline(t, model, local, global)

	_, err := p.ClassifyCurve(context.Background(), testkit.FlatCurve(testkit.DefaultCurveSpec()))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeModelInvocation))
}

func TestNewPipelineRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultPipeline()
	cfg.ChiSqThreshold = -1
	_, err := NewPipeline(&testkit.RuleModel{}, pspl.NewModel(), nil, nil, cfg, nil)
	assert.Error(t, err)
}

func TestNewPipelineRejectsNilModel(t *testing.T) {
	_, err := NewPipeline(nil, pspl.NewModel(), nil, nil, config.DefaultPipeline(), nil)
	assert.Error(t, err)
}
