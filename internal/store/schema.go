package store

import (
	"context"
	"fmt"
)

// schemaStatements is applied in order by EnsureSchema. Every statement is
// idempotent so the worker can run it on every start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id uuid PRIMARY KEY,
		call_id text NOT NULL,
		state text NOT NULL,
		doc_url text NOT NULL DEFAULT '',
		wait_reason text NOT NULL DEFAULT '',
		wait_message_ts text NOT NULL DEFAULT '',
		last_error text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,

	// One live run per call. Finished runs keep their rows for history.
	`CREATE UNIQUE INDEX IF NOT EXISTS runs_live_call_idx
		ON runs (call_id)
		WHERE state NOT IN ('completed', 'failed')`,

	`CREATE INDEX IF NOT EXISTS runs_call_id_idx ON runs (call_id)`,

	`CREATE TABLE IF NOT EXISTS run_steps (
		run_id uuid NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		step text NOT NULL,
		result jsonb NOT NULL,
		completed_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (run_id, step)
	)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
