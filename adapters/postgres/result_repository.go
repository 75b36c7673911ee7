// Package postgres persists pipeline results in a PostgreSQL ledger.
package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"microlens/domain/classify"
	"microlens/domain/core"
	"microlens/internal/errors"
	"microlens/ports"
)

// Connect opens a pooled connection and verifies it.
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.StorageError("failed to connect to postgres", err)
	}
	return db, nil
}

// ResultRepositoryImpl implements ResultRepository for PostgreSQL
type ResultRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultRepository creates a new PostgreSQL result repository
func NewResultRepository(db *sqlx.DB) ports.ResultRepository {
	return &ResultRepositoryImpl{db: db}
}

// resultRecord is the row shape; probabilities and fit attempts are JSONB.
type resultRecord struct {
	RunID         string    `db:"run_id"`
	SourceID      string    `db:"source_id"`
	Label         string    `db:"label"`
	Probabilities []byte    `db:"probabilities"`
	FitAttempts   []byte    `db:"fit_attempts"`
	Confirmed     bool      `db:"confirmed"`
	CreatedAt     time.Time `db:"created_at"`
}

// SaveResult inserts one classification outcome into the ledger
func (r *ResultRepositoryImpl) SaveResult(ctx context.Context, sourceID core.SourceID, result *classify.PipelineResult) error {
	probs, err := json.Marshal(result.Probabilities)
	if err != nil {
		return errors.StorageError("failed to encode probabilities", err)
	}
	attempts, err := json.Marshal(result.FitAttempts)
	if err != nil {
		return errors.StorageError("failed to encode fit attempts", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO classification_results (run_id, source_id, label, probabilities, fit_attempts, confirmed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, result.RunID.String(), sourceID.String(), result.Label.String(), probs, attempts, result.Confirmed, result.CreatedAt.Time())

	if err != nil {
		return errors.StorageError("failed to insert classification result", err)
	}
	return nil
}

// GetResult retrieves one result by run ID
func (r *ResultRepositoryImpl) GetResult(ctx context.Context, runID core.RunID) (*classify.PipelineResult, error) {
	var rec resultRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT run_id, source_id, label, probabilities, fit_attempts, confirmed, created_at
		FROM classification_results
		WHERE run_id = $1
	`, runID.String())
	if err != nil {
		return nil, errors.StorageError("failed to load classification result", err)
	}
	return rec.toResult()
}

// ListResults returns the most recent results, optionally filtered by label
func (r *ResultRepositoryImpl) ListResults(ctx context.Context, label classify.Label, limit int) ([]*classify.PipelineResult, error) {
	query := `
		SELECT run_id, source_id, label, probabilities, fit_attempts, confirmed, created_at
		FROM classification_results
	`
	args := []interface{}{}
	if label != "" {
		query += " WHERE label = $1"
		args = append(args, label.String())
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		args = append(args, limit)
		if label != "" {
			query += " LIMIT $2"
		} else {
			query += " LIMIT $1"
		}
	}

	var records []resultRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, errors.StorageError("failed to list classification results", err)
	}

	results := make([]*classify.PipelineResult, 0, len(records))
	for _, rec := range records {
		result, err := rec.toResult()
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (rec *resultRecord) toResult() (*classify.PipelineResult, error) {
	label, err := classify.ParseLabel(rec.Label)
	if err != nil {
		return nil, errors.StorageError("ledger row has unknown label", err)
	}

	var probs map[classify.Label]float64
	if err := json.Unmarshal(rec.Probabilities, &probs); err != nil {
		return nil, errors.StorageError("ledger row has malformed probabilities", err)
	}
	var attempts []classify.FitAttempt
	if len(rec.FitAttempts) > 0 {
		if err := json.Unmarshal(rec.FitAttempts, &attempts); err != nil {
			return nil, errors.StorageError("ledger row has malformed fit attempts", err)
		}
	}

	return &classify.PipelineResult{
		RunID:         core.RunID(rec.RunID),
		Label:         label,
		Probabilities: probs,
		FitAttempts:   attempts,
		Confirmed:     rec.Confirmed,
		CreatedAt:     core.NewTimestamp(rec.CreatedAt),
	}, nil
}
