package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fenwick-labs/scrivener/internal/events"
	"github.com/fenwick-labs/scrivener/internal/google"
	"github.com/fenwick-labs/scrivener/internal/store"
)

// SignalDocURL answers a run waiting for a destination document and resumes
// it. The URL must carry a parseable document id.
func (e *Engine) SignalDocURL(ctx context.Context, runID uuid.UUID, docURL string) error {
	if _, err := google.DocIDFromURL(docURL); err != nil {
		return fmt.Errorf("invalid doc url: %w", err)
	}

	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if run.State != store.StateWaitingDocURL {
		return fmt.Errorf("run %s is %s, not waiting for a doc url", runID, run.State)
	}

	if err := e.store.SetRunDocURL(ctx, runID, docURL); err != nil {
		return fmt.Errorf("record doc url: %w", err)
	}
	e.logger.Info("doc url provided", "run_id", runID, "doc_url", docURL)
	return e.Execute(ctx, runID)
}

// SignalSectionReady resumes a run parked on a missing meeting block. The
// splice reruns against a fresh document read, this time with the normal
// retry budget.
func (e *Engine) SignalSectionReady(ctx context.Context, runID uuid.UUID) error {
	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if run.State != store.StateWaitingSection {
		return fmt.Errorf("run %s is %s, not waiting for a meeting block", runID, run.State)
	}

	e.logger.Info("meeting block confirmed", "run_id", runID)
	return e.Execute(ctx, runID)
}

// Abandon fails a waiting run at a human's request.
func (e *Engine) Abandon(ctx context.Context, runID uuid.UUID, reason string) error {
	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if !run.State.Waiting() {
		return fmt.Errorf("run %s is %s, only waiting runs can be abandoned", runID, run.State)
	}

	if err := e.store.SetRunFailed(ctx, runID, reason); err != nil {
		return fmt.Errorf("mark run failed: %w", err)
	}
	e.publish(events.SubjectRunFailed, run, store.StateFailed, reason)
	e.logger.Info("run abandoned", "run_id", runID, "reason", reason)
	return nil
}
