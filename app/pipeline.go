// Package app orchestrates the decision pipeline: validate, extract
// features, classify, and confirm microlensing candidates. One Pipeline is
// safe for concurrent use; each invocation is stateless.
package app

import (
	"context"

	"go.uber.org/zap"

	"microlens/domain/classify"
	"microlens/domain/core"
	"microlens/domain/lightcurve"
	"microlens/internal/classifier"
	"microlens/internal/config"
	"microlens/internal/confirm"
	"microlens/internal/features"
	"microlens/ports"
)

// Pipeline wires the four stages together under one configuration record.
type Pipeline struct {
	cfg       config.Pipeline
	extractor *features.Engine
	adapter   *classifier.Adapter
	confirmer *confirm.Engine
	logger    *zap.Logger
}

// NewPipeline builds a pipeline around the supplied model and fit
// capabilities. A nil logger disables logging.
func NewPipeline(
	model ports.Model,
	lens ports.LensModel,
	local ports.LocalOptimizer,
	global ports.GlobalOptimizer,
	cfg config.Pipeline,
	logger *zap.Logger,
) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	adapter, err := classifier.NewAdapter(model)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		extractor: features.NewEngine(),
		adapter:   adapter,
		confirmer: confirm.NewEngine(lens, local, global, cfg),
		logger:    logger,
	}, nil
}

// Classify validates the raw arrays and runs the full pipeline. Validation
// and model errors propagate; a non-converging fit is handled inside the
// confirmation stage and always resolves to a final label.
func (p *Pipeline) Classify(ctx context.Context, times, mags, errs []float64) (*classify.PipelineResult, error) {
	lc, err := lightcurve.New(times, mags, errs, p.cfg.MinSamples)
	if err != nil {
		return nil, err
	}
	return p.ClassifyCurve(ctx, lc)
}

// ClassifyCurve runs the pipeline on an already-validated lightcurve.
func (p *Pipeline) ClassifyCurve(ctx context.Context, lc *lightcurve.LightCurve) (*classify.PipelineResult, error) {
	runID := core.NewRunID()

	vector := p.extractor.Extract(lc)

	result, err := p.adapter.Classify(vector)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("model prediction",
		zap.String("run_id", runID.String()),
		zap.String("label", result.Label.String()))

	outcome := p.confirmer.Confirm(ctx, lc, result)
	if outcome.Label != result.Label {
		p.logger.Info("confirmation overrode model label",
			zap.String("run_id", runID.String()),
			zap.String("model_label", result.Label.String()),
			zap.String("final_label", outcome.Label.String()))
	}

	return &classify.PipelineResult{
		RunID:         runID,
		Label:         outcome.Label,
		Probabilities: result.Probabilities,
		FitAttempts:   outcome.Attempts,
		Confirmed:     outcome.Confirmed,
		CreatedAt:     core.Now(),
	}, nil
}
