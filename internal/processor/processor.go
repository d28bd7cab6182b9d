// Package processor wires bus messages to the run engine: call-recorded
// triggers start runs, signal messages resume waiting ones, and reactions on
// waiting prompts are translated into confirm or abandon.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fenwick-labs/scrivener/internal/events"
	"github.com/fenwick-labs/scrivener/internal/slack"
	"github.com/fenwick-labs/scrivener/internal/store"
)

// Engine is the run engine surface the processor drives.
type Engine interface {
	Trigger(ctx context.Context, callID string) (*store.Run, bool, error)
	Execute(ctx context.Context, runID uuid.UUID) error
	SignalDocURL(ctx context.Context, runID uuid.UUID, docURL string) error
	SignalSectionReady(ctx context.Context, runID uuid.UUID) error
	Abandon(ctx context.Context, runID uuid.UUID, reason string) error
}

// WaitLookup maps a Slack message timestamp back to the run waiting on it.
type WaitLookup interface {
	GetRunByWaitMessageTS(ctx context.Context, messageTS string) (*store.Run, error)
}

type Processor struct {
	engine Engine
	waits  WaitLookup
	logger *slog.Logger
}

func New(engine Engine, waits WaitLookup, logger *slog.Logger) *Processor {
	return &Processor{engine: engine, waits: waits, logger: logger}
}

// HandleCallRecorded is the NATS handler for scrivener.call.recorded.
func (p *Processor) HandleCallRecorded(subject string, data []byte) {
	var evt events.CallRecorded
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse call-recorded event", "error", err)
		return
	}
	if evt.CallID == "" {
		p.logger.Error("call-recorded event without a call id")
		return
	}

	run, created, err := p.engine.Trigger(context.Background(), evt.CallID)
	if err != nil {
		p.logger.Error("failed to start run", "call_id", evt.CallID, "error", err)
		return
	}
	if !created {
		return
	}

	// Runs execute off the delivery goroutine so one slow model call does
	// not hold up other calls.
	go func() {
		_ = p.engine.Execute(context.Background(), run.ID)
	}()
}

// HandleDocURLSignal is the NATS handler for scrivener.signal.docurl.
func (p *Processor) HandleDocURLSignal(subject string, data []byte) {
	var sig events.DocURLSignal
	if err := json.Unmarshal(data, &sig); err != nil {
		p.logger.Error("failed to parse doc-url signal", "error", err)
		return
	}

	runID, err := uuid.Parse(sig.RunID)
	if err != nil {
		p.logger.Error("doc-url signal with invalid run id", "run_id", sig.RunID, "error", err)
		return
	}

	if err := p.engine.SignalDocURL(context.Background(), runID, sig.DocURL); err != nil {
		p.logger.Error("doc-url signal rejected", "run_id", runID, "error", err)
	}
}

// HandleSectionSignal is the NATS handler for scrivener.signal.section.
func (p *Processor) HandleSectionSignal(subject string, data []byte) {
	var sig events.SectionSignal
	if err := json.Unmarshal(data, &sig); err != nil {
		p.logger.Error("failed to parse section signal", "error", err)
		return
	}

	runID, err := uuid.Parse(sig.RunID)
	if err != nil {
		p.logger.Error("section signal with invalid run id", "run_id", sig.RunID, "error", err)
		return
	}

	if err := p.engine.SignalSectionReady(context.Background(), runID); err != nil {
		p.logger.Error("section signal rejected", "run_id", runID, "error", err)
	}
}

// HandleReaction is the NATS handler for reactions forwarded from Slack. A
// reaction only matters when it lands on a waiting-run prompt: confirmation
// resumes a run waiting for its meeting block, rejection abandons the run.
func (p *Processor) HandleReaction(subject string, data []byte) {
	event, err := slack.ParseReactionEvent(data)
	if err != nil {
		p.logger.Error("failed to parse reaction event", "error", err)
		return
	}

	verdict := slack.ParseReaction(event.Reaction)
	if verdict == slack.VerdictIgnored || event.MessageTS == "" {
		return
	}

	ctx := context.Background()
	run, err := p.waits.GetRunByWaitMessageTS(ctx, event.MessageTS)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			// Reaction on some unrelated message.
			return
		}
		p.logger.Error("reaction lookup failed", "message_ts", event.MessageTS, "error", err)
		return
	}

	p.logger.Info("reaction on waiting-run prompt",
		"run_id", run.ID,
		"state", run.State,
		"reaction", event.Reaction,
		"user", event.UserID,
	)

	switch verdict {
	case slack.VerdictConfirmed:
		if run.State != store.StateWaitingSection {
			// A thumbs-up cannot supply the missing doc URL.
			p.logger.Info("confirmation needs a doc url, ignoring", "run_id", run.ID, "state", run.State)
			return
		}
		if err := p.engine.SignalSectionReady(ctx, run.ID); err != nil {
			p.logger.Error("section confirmation rejected", "run_id", run.ID, "error", err)
		}
	case slack.VerdictRejected:
		reason := fmt.Sprintf("abandoned by :%s: reaction from %s", event.Reaction, event.UserID)
		if err := p.engine.Abandon(ctx, run.ID, reason); err != nil {
			p.logger.Error("failed to abandon run", "run_id", run.ID, "error", err)
		}
	}
}
