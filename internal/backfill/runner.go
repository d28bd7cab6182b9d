// Package backfill replays historical calls through the run engine in
// rate-limited batches. It exists for onboarding: when the worker starts
// watching a workspace that already has months of recorded calls, backfill
// feeds them through the same pipeline live calls take.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fenwick-labs/scrivener/internal/store"
)

// Config holds the backfill configuration.
type Config struct {
	CallIDs   []string
	BatchSize int           // calls per batch before pausing
	Pause     time.Duration // pause between batches
	DryRun    bool          // report what would run without running it
	Reprocess bool          // run calls that already have a completed run
}

// Engine is the slice of the run engine backfill drives.
type Engine interface {
	Trigger(ctx context.Context, callID string) (*store.Run, bool, error)
	Execute(ctx context.Context, runID uuid.UUID) error
}

// RunLookup reads run state back after execution.
type RunLookup interface {
	GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error)
	ListRunsByCallID(ctx context.Context, callID string) ([]*store.Run, error)
}

// SummaryPoster receives the final batch summary. Optional; without one the
// summary is logged.
type SummaryPoster interface {
	PostSummary(ctx context.Context, text string) error
}

// Tally counts call outcomes across a backfill.
type Tally struct {
	Processed int // completed runs; in dry-run mode, calls that would run
	Skipped   int
	Waiting   int
	Failed    int
	Errors    []string
}

type Runner struct {
	cfg    Config
	engine Engine
	runs   RunLookup
	slack  SummaryPoster
	logger *slog.Logger
}

func NewRunner(cfg Config, engine Engine, runs RunLookup, slack SummaryPoster, logger *slog.Logger) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Pause <= 0 {
		cfg.Pause = 30 * time.Second
	}
	return &Runner{
		cfg:    cfg,
		engine: engine,
		runs:   runs,
		slack:  slack,
		logger: logger,
	}
}

// Run feeds every configured call through the engine, pausing between
// batches so the recorder and model APIs see a trickle instead of a burst.
// Runs that park in a waiting state are left for their Slack prompt to
// resolve; backfill does not block on them.
func (r *Runner) Run(ctx context.Context) (*Tally, error) {
	tally := &Tally{}
	inBatch := 0

	for _, callID := range r.cfg.CallIDs {
		select {
		case <-ctx.Done():
			r.logger.Info("backfill interrupted")
			r.postSummary(ctx, tally)
			return tally, ctx.Err()
		default:
		}

		done, err := r.alreadyProcessed(ctx, callID)
		if err != nil {
			r.logger.Warn("could not check prior runs", "call_id", callID, "error", err)
		}
		if done && !r.cfg.Reprocess {
			r.logger.Info("call already processed, skipping", "call_id", callID)
			tally.Skipped++
			continue
		}

		if r.cfg.DryRun {
			r.logger.Info("would process call", "call_id", callID)
			tally.Processed++
			continue
		}

		r.processCall(ctx, callID, tally)

		inBatch++
		if inBatch >= r.cfg.BatchSize {
			r.logger.Info("batch complete, pausing",
				"batch_size", inBatch,
				"pause", r.cfg.Pause,
			)
			inBatch = 0
			select {
			case <-ctx.Done():
				r.postSummary(ctx, tally)
				return tally, ctx.Err()
			case <-time.After(r.cfg.Pause):
			}
		}
	}

	r.postSummary(ctx, tally)
	r.logger.Info("backfill complete",
		"processed", tally.Processed,
		"skipped", tally.Skipped,
		"waiting", tally.Waiting,
		"failed", tally.Failed,
		"dry_run", r.cfg.DryRun,
	)
	return tally, nil
}

func (r *Runner) processCall(ctx context.Context, callID string, tally *Tally) {
	run, created, err := r.engine.Trigger(ctx, callID)
	if err != nil {
		r.logger.Error("trigger failed", "call_id", callID, "error", err)
		tally.Failed++
		tally.Errors = append(tally.Errors, fmt.Sprintf("trigger %s: %v", callID, err))
		return
	}
	if !created {
		r.logger.Info("joining live run", "call_id", callID, "run_id", run.ID)
	}

	if err := r.engine.Execute(ctx, run.ID); err != nil {
		// The run has already recorded its own failure; the read-back
		// below classifies it.
		r.logger.Error("run ended with error", "call_id", callID, "run_id", run.ID, "error", err)
	}

	current, err := r.runs.GetRun(ctx, run.ID)
	if err != nil {
		tally.Errors = append(tally.Errors, fmt.Sprintf("read back %s: %v", callID, err))
		return
	}
	switch {
	case current.State == store.StateCompleted:
		tally.Processed++
	case current.State.Waiting():
		r.logger.Info("run waiting on a human",
			"call_id", callID,
			"run_id", run.ID,
			"state", current.State,
			"reason", current.WaitReason,
		)
		tally.Waiting++
	case current.State == store.StateFailed:
		tally.Failed++
		tally.Errors = append(tally.Errors, fmt.Sprintf("%s: %s", callID, current.LastError))
	default:
		// Interrupted mid-step; the next worker start resumes it.
		tally.Errors = append(tally.Errors, fmt.Sprintf("%s: interrupted in state %s", callID, current.State))
	}
}

func (r *Runner) alreadyProcessed(ctx context.Context, callID string) (bool, error) {
	prior, err := r.runs.ListRunsByCallID(ctx, callID)
	if err != nil {
		return false, err
	}
	for _, p := range prior {
		if p.State == store.StateCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (r *Runner) postSummary(ctx context.Context, tally *Tally) {
	if tally.Processed+tally.Skipped+tally.Waiting+tally.Failed == 0 && len(tally.Errors) == 0 {
		return
	}

	text := FormatSummary(r.cfg, tally)
	if r.slack == nil {
		r.logger.Info("backfill summary", "summary", text)
		return
	}
	if err := r.slack.PostSummary(ctx, text); err != nil {
		r.logger.Warn("failed to post backfill summary, logging instead",
			"error", err,
			"summary", text,
		)
	}
}

// FormatSummary renders the outcome block posted to Slack.
func FormatSummary(cfg Config, tally *Tally) string {
	var sb strings.Builder
	sb.WriteString("*Backfill Summary*\n")

	if cfg.DryRun {
		fmt.Fprintf(&sb, "dry run - %d calls would be processed, %d skipped\n", tally.Processed, tally.Skipped)
		return sb.String()
	}

	fmt.Fprintf(&sb, "%d processed, %d skipped, %d waiting on a human, %d failed\n",
		tally.Processed, tally.Skipped, tally.Waiting, tally.Failed)
	for _, e := range tally.Errors {
		fmt.Fprintf(&sb, "  - %s\n", e)
	}
	return sb.String()
}
