package ports

import (
	"context"

	"microlens/domain/classify"
	"microlens/domain/core"
)

// ResultRepository persists pipeline results for later inspection.
type ResultRepository interface {
	SaveResult(ctx context.Context, sourceID core.SourceID, result *classify.PipelineResult) error
	GetResult(ctx context.Context, runID core.RunID) (*classify.PipelineResult, error)
	ListResults(ctx context.Context, label classify.Label, limit int) ([]*classify.PipelineResult, error)
}
