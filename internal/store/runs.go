package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// State is a run's position in the processing pipeline.
type State string

const (
	StatePending            State = "pending"
	StateFetchingTranscript State = "fetching_transcript"
	StateFindingDoc         State = "finding_doc"
	StateWaitingDocURL      State = "waiting_doc_url"
	StateStructuring        State = "structuring"
	StateApplyingEdits      State = "applying_edits"
	StateWaitingSection     State = "waiting_section"
	StateNotifying          State = "notifying"
	StateCompleted          State = "completed"
	StateFailed             State = "failed"
)

// Terminal reports whether the run is finished, successfully or not.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Waiting reports whether the run is suspended on a human signal.
func (s State) Waiting() bool {
	return s == StateWaitingDocURL || s == StateWaitingSection
}

var (
	// ErrRunNotFound is returned when no run matches the lookup.
	ErrRunNotFound = errors.New("store: run not found")
)

// Run is one processing attempt for a recorded call.
type Run struct {
	ID            uuid.UUID
	CallID        string
	State         State
	DocURL        string
	WaitReason    string
	WaitMessageTS string
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const runColumns = `id, call_id, state, doc_url, wait_reason, wait_message_ts, last_error, created_at, updated_at`

func scanRun(row pgx.Row) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.CallID, &r.State, &r.DocURL, &r.WaitReason, &r.WaitMessageTS, &r.LastError, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &r, nil
}

// CreateRun starts a run for callID. If a live run for the call already
// exists the existing run is returned instead, with created=false; a call is
// only ever processed by one live run at a time.
func (s *Store) CreateRun(ctx context.Context, callID string) (*Run, bool, error) {
	id := uuid.New()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO runs (id, call_id, state)
		VALUES ($1, $2, $3)
		RETURNING `+runColumns,
		id, callID, StatePending,
	)

	run, err := scanRun(row)
	if err == nil {
		return run, true, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		existing, lookupErr := s.GetLiveRunByCallID(ctx, callID)
		if lookupErr != nil {
			return nil, false, fmt.Errorf("lookup live run after conflict: %w", lookupErr)
		}
		return existing, false, nil
	}

	return nil, false, fmt.Errorf("insert run: %w", err)
}

// GetRun fetches a run by id.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	return scanRun(row)
}

// GetLiveRunByCallID fetches the one non-terminal run for a call, if any.
func (s *Store) GetLiveRunByCallID(ctx context.Context, callID string) (*Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE call_id = $1 AND state NOT IN ($2, $3)`,
		callID, StateCompleted, StateFailed,
	)
	return scanRun(row)
}

// GetRunByWaitMessageTS finds the waiting run whose Slack prompt carries the
// given message timestamp. Used to map reactions back to runs.
func (s *Store) GetRunByWaitMessageTS(ctx context.Context, messageTS string) (*Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE wait_message_ts = $1 AND state IN ($2, $3)`,
		messageTS, StateWaitingDocURL, StateWaitingSection,
	)
	return scanRun(row)
}

// ListRunsByCallID returns all runs for a call, newest first.
func (s *Store) ListRunsByCallID(ctx context.Context, callID string) ([]*Run, error) {
	return s.listRuns(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE call_id = $1
		ORDER BY created_at DESC`, callID)
}

// ListRecentRuns returns the most recently created runs.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	return s.listRuns(ctx, `
		SELECT `+runColumns+` FROM runs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
}

// ListResumableRuns returns runs that were mid-flight when the process last
// stopped: live runs not parked on human input.
func (s *Store) ListResumableRuns(ctx context.Context) ([]*Run, error) {
	return s.listRuns(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE state NOT IN ($1, $2, $3, $4)
		ORDER BY created_at`,
		StateCompleted, StateFailed, StateWaitingDocURL, StateWaitingSection)
}

func (s *Store) listRuns(ctx context.Context, query string, args ...any) ([]*Run, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SetRunState moves a run to a new state. Wait metadata is cleared; it only
// describes the waiting state the run is leaving.
func (s *Store) SetRunState(ctx context.Context, id uuid.UUID, state State) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE runs SET state = $1, wait_reason = '', wait_message_ts = '', updated_at = now()
		WHERE id = $2`,
		state, id,
	)
	return err
}

// SetRunWaiting suspends a run on a human signal, recording why and which
// Slack message asked for it.
func (s *Store) SetRunWaiting(ctx context.Context, id uuid.UUID, state State, reason, messageTS string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE runs SET state = $1, wait_reason = $2, wait_message_ts = $3, updated_at = now()
		WHERE id = $4`,
		state, reason, messageTS, id,
	)
	return err
}

// SetRunDocURL records the destination document for a run.
func (s *Store) SetRunDocURL(ctx context.Context, id uuid.UUID, docURL string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE runs SET doc_url = $1, updated_at = now()
		WHERE id = $2`,
		docURL, id,
	)
	return err
}

// SetRunFailed marks a run failed with its last error.
func (s *Store) SetRunFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE runs SET state = $1, last_error = $2, updated_at = now()
		WHERE id = $3`,
		StateFailed, lastError, id,
	)
	return err
}
