// Package migration creates and upgrades the ledger schema at startup.
package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"microlens/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createResultsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create classification_results table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createResultsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS classification_results (
			run_id UUID PRIMARY KEY,
			source_id VARCHAR(255) NOT NULL,
			label VARCHAR(50) NOT NULL,
			probabilities JSONB NOT NULL,
			fit_attempts JSONB,
			confirmed BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_classification_results_label
			ON classification_results(label);
		CREATE INDEX IF NOT EXISTS idx_classification_results_source
			ON classification_results(source_id);
		CREATE INDEX IF NOT EXISTS idx_classification_results_created_at
			ON classification_results(created_at DESC)
	`)
	return err
}
