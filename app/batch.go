package app

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"microlens/domain/classify"
	"microlens/domain/core"
)

// BatchInput is one source to classify.
type BatchInput struct {
	SourceID core.SourceID
	Time     []float64
	Mag      []float64
	Err      []float64
}

// BatchOutput pairs a source with its pipeline result. Err is set when that
// source failed validation or classification; other sources are unaffected.
type BatchOutput struct {
	SourceID core.SourceID
	Result   *classify.PipelineResult
	Err      error
}

// ClassifyBatch runs the pipeline over many sources with a bounded worker
// pool. Outputs are returned in input order. Only context cancellation
// aborts the batch; per-source failures are recorded in their output.
func (p *Pipeline) ClassifyBatch(ctx context.Context, inputs []BatchInput, workers int) ([]BatchOutput, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	outputs := make([]BatchOutput, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := p.Classify(ctx, in.Time, in.Mag, in.Err)
			outputs[i] = BatchOutput{SourceID: in.SourceID, Result: result, Err: err}
			if err != nil {
				p.logger.Warn("source failed classification",
					zap.String("source_id", in.SourceID.String()),
					zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
