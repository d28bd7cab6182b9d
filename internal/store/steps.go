package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveStepResult records a step's result for a run. The first write wins;
// a completed step is never overwritten, which is what lets resumed runs
// skip work already done.
func (s *Store) SaveStepResult(ctx context.Context, runID uuid.UUID, step string, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal step result: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO run_steps (run_id, step, result)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (run_id, step) DO NOTHING`,
		runID, step, string(data),
	)
	if err != nil {
		return fmt.Errorf("save step result: %w", err)
	}
	return nil
}

// GetStepResult loads a step's recorded result into out. Returns false when
// the step has not completed yet.
func (s *Store) GetStepResult(ctx context.Context, runID uuid.UUID, step string, out any) (bool, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT result FROM run_steps
		WHERE run_id = $1 AND step = $2`,
		runID, step,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load step result: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal step result: %w", err)
	}
	return true, nil
}
