// Package workflow drives a call-notes run through its steps: pull the
// transcript, locate the destination doc, restructure the call with the
// model, splice the result into the doc, and confirm in Slack. Every step's
// result is persisted, so a run interrupted by a crash, a missing doc, or a
// missing meeting block resumes exactly where it stopped instead of redoing
// finished work.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fenwick-labs/scrivener/internal/docfinder"
	"github.com/fenwick-labs/scrivener/internal/editplan"
	"github.com/fenwick-labs/scrivener/internal/events"
	"github.com/fenwick-labs/scrivener/internal/gdoc"
	"github.com/fenwick-labs/scrivener/internal/gong"
	"github.com/fenwick-labs/scrivener/internal/google"
	"github.com/fenwick-labs/scrivener/internal/notes"
	"github.com/fenwick-labs/scrivener/internal/store"
)

// Step names recorded in run_steps. Renaming one orphans the recorded
// results of in-flight runs.
const (
	stepFetchTranscript = "fetch_transcript"
	stepFindDoc         = "find_doc"
	stepReadSnapshot    = "read_snapshot"
	stepStructure       = "structure"
	stepAppendNotes     = "append_notes"
	stepNotify          = "notify"
)

type docResult struct {
	DocURL string `json:"doc_url"`
}

type snapshotResult struct {
	Snapshot string `json:"snapshot"`
}

type appendResult struct {
	Day string `json:"day"`
	Ops int    `json:"ops"`
}

type notifyResult struct {
	Posted bool `json:"posted"`
}

// errSuspended stops the step loop after a run has parked in a waiting
// state. It never reaches a caller.
var errSuspended = errors.New("run suspended")

// TranscriptFetcher pulls the call bundle from the call recorder.
type TranscriptFetcher interface {
	FetchCall(ctx context.Context, callID string) (*gong.Call, error)
}

// DocFinder locates the destination document. An empty URL with a nil error
// means discovery gave up and a human has to provide one.
type DocFinder interface {
	Find(ctx context.Context, q docfinder.Query) (string, error)
}

// NoteStructurer turns a transcript and the doc's prior snapshot into the
// snapshot, summary, and call-notes sections.
type NoteStructurer interface {
	Structure(ctx context.Context, call *gong.Call, existingSnapshot string) (*notes.Structured, error)
}

// DocEditor reads and edits the destination document.
type DocEditor interface {
	GetDocument(ctx context.Context, docID string) (*gdoc.Document, error)
	ApplyEdits(ctx context.Context, docID string, ops []editplan.Op) error
}

// Notifier posts run outcomes and waiting prompts to the team channel.
type Notifier interface {
	PostRunDone(ctx context.Context, callID, docURL, summary string) error
	PostDocNeeded(ctx context.Context, callID, accountName, runID string) (string, error)
	PostSectionNeeded(ctx context.Context, callID, day, docURL, runID string) (string, error)
}

// RunStore is the durable run state the engine drives.
type RunStore interface {
	CreateRun(ctx context.Context, callID string) (*store.Run, bool, error)
	GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error)
	ListResumableRuns(ctx context.Context) ([]*store.Run, error)
	SetRunState(ctx context.Context, id uuid.UUID, state store.State) error
	SetRunWaiting(ctx context.Context, id uuid.UUID, state store.State, reason, messageTS string) error
	SetRunDocURL(ctx context.Context, id uuid.UUID, docURL string) error
	SetRunFailed(ctx context.Context, id uuid.UUID, lastError string) error
	SaveStepResult(ctx context.Context, runID uuid.UUID, step string, result any) error
	GetStepResult(ctx context.Context, runID uuid.UUID, step string, out any) (bool, error)
}

// Bus fans run status out to anything listening.
type Bus interface {
	Publish(subject string, data any) error
}

type Engine struct {
	store      RunStore
	fetcher    TranscriptFetcher
	finder     DocFinder
	structurer NoteStructurer
	docs       DocEditor
	notifier   Notifier
	bus        Bus
	logger     *slog.Logger
	policy     RetryPolicy
}

func New(st RunStore, fetcher TranscriptFetcher, finder DocFinder, structurer NoteStructurer, docs DocEditor, notifier Notifier, bus Bus, logger *slog.Logger) *Engine {
	return &Engine{
		store:      st,
		fetcher:    fetcher,
		finder:     finder,
		structurer: structurer,
		docs:       docs,
		notifier:   notifier,
		bus:        bus,
		logger:     logger,
		policy:     defaultRetry,
	}
}

// Trigger starts a run for a call. A second trigger for a call with a live
// run joins that run instead of starting another.
func (e *Engine) Trigger(ctx context.Context, callID string) (*store.Run, bool, error) {
	run, created, err := e.store.CreateRun(ctx, callID)
	if err != nil {
		return nil, false, fmt.Errorf("create run: %w", err)
	}
	if !created {
		e.logger.Info("call already has a live run",
			"call_id", callID,
			"run_id", run.ID,
			"state", run.State,
		)
		return run, false, nil
	}
	e.logger.Info("run started", "call_id", callID, "run_id", run.ID)
	return run, true, nil
}

// Execute drives a run from its current position to completion, a waiting
// state, or failure. Finished steps are loaded from their persisted results
// rather than re-executed, so a resumed run never refetches a transcript or
// restructures notes it already has.
func (e *Engine) Execute(ctx context.Context, runID uuid.UUID) error {
	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if run.State.Terminal() {
		e.logger.Warn("run already finished", "run_id", run.ID, "state", run.State)
		return nil
	}

	// A run coming out of waiting_section has had its meeting block
	// confirmed by a human, so the splice gets the normal retry budget
	// instead of the single attempt.
	sectionConfirmed := run.State == store.StateWaitingSection

	err = e.runSteps(ctx, run, sectionConfirmed)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errSuspended):
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Leave the run in place; the next trigger resumes it.
		e.logger.Warn("run interrupted", "run_id", run.ID, "error", err)
		return err
	default:
		return e.fail(ctx, run, err)
	}
}

// ResumeInFlight restarts runs that were mid-step when the previous process
// stopped. Waiting runs stay parked; they resume on their signal.
func (e *Engine) ResumeInFlight(ctx context.Context) error {
	runs, err := e.store.ListResumableRuns(ctx)
	if err != nil {
		return fmt.Errorf("list resumable runs: %w", err)
	}
	for _, run := range runs {
		e.logger.Info("resuming interrupted run", "run_id", run.ID, "call_id", run.CallID, "state", run.State)
		if err := e.Execute(ctx, run.ID); err != nil {
			e.logger.Error("resume failed", "run_id", run.ID, "error", err)
		}
	}
	return nil
}

func (e *Engine) runSteps(ctx context.Context, run *store.Run, sectionConfirmed bool) error {
	call, err := e.fetchTranscript(ctx, run)
	if err != nil {
		return err
	}

	docURL, err := e.findDoc(ctx, run, call)
	if err != nil {
		return err
	}

	docID, err := google.DocIDFromURL(docURL)
	if err != nil {
		return fmt.Errorf("destination url %q: %w", docURL, err)
	}

	structured, err := e.structureNotes(ctx, run, call, docID)
	if err != nil {
		return err
	}

	if err := e.appendNotes(ctx, run, call, docID, docURL, structured, sectionConfirmed); err != nil {
		return err
	}

	if err := e.notify(ctx, run, call, docURL, structured); err != nil {
		return err
	}

	if err := e.store.SetRunState(ctx, run.ID, store.StateCompleted); err != nil {
		return fmt.Errorf("mark run completed: %w", err)
	}
	e.publish(events.SubjectRunCompleted, run, store.StateCompleted, "")
	e.logger.Info("run completed", "run_id", run.ID, "call_id", run.CallID, "doc_url", docURL)
	return nil
}

func (e *Engine) fetchTranscript(ctx context.Context, run *store.Run) (*gong.Call, error) {
	var call gong.Call
	found, err := e.store.GetStepResult(ctx, run.ID, stepFetchTranscript, &call)
	if err != nil {
		return nil, fmt.Errorf("load %s result: %w", stepFetchTranscript, err)
	}
	if found {
		return &call, nil
	}

	if err := e.setState(ctx, run, store.StateFetchingTranscript); err != nil {
		return nil, err
	}

	err = e.retry(ctx, e.policy, stepFetchTranscript, func(ctx context.Context) error {
		c, err := e.fetcher.FetchCall(ctx, run.CallID)
		if err != nil {
			return err
		}
		call = *c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}

	if err := e.store.SaveStepResult(ctx, run.ID, stepFetchTranscript, call); err != nil {
		return nil, fmt.Errorf("record %s result: %w", stepFetchTranscript, err)
	}
	e.logger.Info("fetched transcript",
		"run_id", run.ID,
		"call_id", call.ID,
		"account", call.AccountName,
		"transcript_len", len(call.Transcript),
	)
	return &call, nil
}

func (e *Engine) findDoc(ctx context.Context, run *store.Run, call *gong.Call) (string, error) {
	var saved docResult
	found, err := e.store.GetStepResult(ctx, run.ID, stepFindDoc, &saved)
	if err != nil {
		return "", fmt.Errorf("load %s result: %w", stepFindDoc, err)
	}
	if found {
		return saved.DocURL, nil
	}

	// A URL already on the run came from a human answering the waiting
	// prompt; discovery is skipped.
	docURL := run.DocURL
	if docURL == "" {
		if err := e.setState(ctx, run, store.StateFindingDoc); err != nil {
			return "", err
		}
		err = e.retry(ctx, e.policy, stepFindDoc, func(ctx context.Context) error {
			url, err := e.finder.Find(ctx, docfinder.Query{
				CallID:       call.ID,
				AccountName:  call.AccountName,
				Participants: call.Participants,
			})
			if err != nil {
				return err
			}
			docURL = url
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("find destination doc: %w", err)
		}
	}

	if docURL == "" {
		return "", e.suspend(ctx, run, store.StateWaitingDocURL,
			fmt.Sprintf("no destination doc found for account %q", call.AccountName),
			func(ctx context.Context) (string, error) {
				return e.notifier.PostDocNeeded(ctx, call.ID, call.AccountName, run.ID.String())
			})
	}

	if err := e.store.SaveStepResult(ctx, run.ID, stepFindDoc, docResult{DocURL: docURL}); err != nil {
		return "", fmt.Errorf("record %s result: %w", stepFindDoc, err)
	}
	if err := e.store.SetRunDocURL(ctx, run.ID, docURL); err != nil {
		return "", fmt.Errorf("record doc url: %w", err)
	}
	e.logger.Info("resolved destination doc", "run_id", run.ID, "doc_url", docURL)
	return docURL, nil
}

func (e *Engine) structureNotes(ctx context.Context, run *store.Run, call *gong.Call, docID string) (*notes.Structured, error) {
	var structured notes.Structured
	found, err := e.store.GetStepResult(ctx, run.ID, stepStructure, &structured)
	if err != nil {
		return nil, fmt.Errorf("load %s result: %w", stepStructure, err)
	}
	if found {
		return &structured, nil
	}

	if err := e.setState(ctx, run, store.StateStructuring); err != nil {
		return nil, err
	}

	snapshot, err := e.readSnapshot(ctx, run, docID)
	if err != nil {
		return nil, err
	}

	err = e.retry(ctx, e.policy, stepStructure, func(ctx context.Context) error {
		out, err := e.structurer.Structure(ctx, call, snapshot)
		if err != nil {
			return err
		}
		structured = *out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("structure notes: %w", err)
	}

	if err := e.store.SaveStepResult(ctx, run.ID, stepStructure, structured); err != nil {
		return nil, fmt.Errorf("record %s result: %w", stepStructure, err)
	}
	return &structured, nil
}

func (e *Engine) readSnapshot(ctx context.Context, run *store.Run, docID string) (string, error) {
	var saved snapshotResult
	found, err := e.store.GetStepResult(ctx, run.ID, stepReadSnapshot, &saved)
	if err != nil {
		return "", fmt.Errorf("load %s result: %w", stepReadSnapshot, err)
	}
	if found {
		return saved.Snapshot, nil
	}

	var snapshot string
	err = e.retry(ctx, e.policy, stepReadSnapshot, func(ctx context.Context) error {
		doc, err := e.docs.GetDocument(ctx, docID)
		if err != nil {
			return err
		}
		snapshot = gdoc.ExtractSection(gdoc.Flatten(doc), gdoc.DefaultMarks)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read existing snapshot: %w", err)
	}

	if err := e.store.SaveStepResult(ctx, run.ID, stepReadSnapshot, snapshotResult{Snapshot: snapshot}); err != nil {
		return "", fmt.Errorf("record %s result: %w", stepReadSnapshot, err)
	}
	e.logger.Info("read existing snapshot", "run_id", run.ID, "snapshot_len", len(snapshot))
	return snapshot, nil
}

func (e *Engine) appendNotes(ctx context.Context, run *store.Run, call *gong.Call, docID, docURL string, structured *notes.Structured, sectionConfirmed bool) error {
	var saved appendResult
	found, err := e.store.GetStepResult(ctx, run.ID, stepAppendNotes, &saved)
	if err != nil {
		return fmt.Errorf("load %s result: %w", stepAppendNotes, err)
	}
	if found {
		return nil
	}

	day, err := editplan.ParseCallDay(call.ScheduledAt)
	if err != nil {
		return fmt.Errorf("call %s: %w", call.ID, err)
	}

	if err := e.setState(ctx, run, store.StateApplyingEdits); err != nil {
		return err
	}

	policy := singleAttempt
	if sectionConfirmed {
		policy = e.policy
	}

	var opCount int
	err = e.retry(ctx, policy, stepAppendNotes, func(ctx context.Context) error {
		// Always splice against a fresh read; indices from an earlier
		// fetch are stale the moment anything else edits the doc.
		doc, err := e.docs.GetDocument(ctx, docID)
		if err != nil {
			return err
		}
		bounds, err := gdoc.SectionBounds(gdoc.Flatten(doc), gdoc.DefaultMarks)
		if err != nil {
			return err
		}
		anchor, err := editplan.ResolveNotesAnchor(doc.Body.Content, day)
		if err != nil {
			return err
		}
		ops := editplan.PlanEdits(anchor, bounds, structured.Snapshot, structured.CallNotes)
		if err := e.docs.ApplyEdits(ctx, docID, ops); err != nil {
			return err
		}
		opCount = len(ops)
		return nil
	})
	if errors.Is(err, editplan.ErrNoMeetingBlock) {
		return e.suspend(ctx, run, store.StateWaitingSection,
			fmt.Sprintf("no meeting block for %s", day),
			func(ctx context.Context) (string, error) {
				return e.notifier.PostSectionNeeded(ctx, call.ID, day.String(), docURL, run.ID.String())
			})
	}
	if err != nil {
		return fmt.Errorf("apply edits: %w", err)
	}

	if err := e.store.SaveStepResult(ctx, run.ID, stepAppendNotes, appendResult{Day: day.String(), Ops: opCount}); err != nil {
		return fmt.Errorf("record %s result: %w", stepAppendNotes, err)
	}
	e.logger.Info("spliced notes into doc",
		"run_id", run.ID,
		"doc_url", docURL,
		"day", day.String(),
		"ops", opCount,
	)
	return nil
}

func (e *Engine) notify(ctx context.Context, run *store.Run, call *gong.Call, docURL string, structured *notes.Structured) error {
	var saved notifyResult
	found, err := e.store.GetStepResult(ctx, run.ID, stepNotify, &saved)
	if err != nil {
		return fmt.Errorf("load %s result: %w", stepNotify, err)
	}
	if found {
		return nil
	}

	if err := e.setState(ctx, run, store.StateNotifying); err != nil {
		return err
	}

	err = e.retry(ctx, e.policy, stepNotify, func(ctx context.Context) error {
		return e.notifier.PostRunDone(ctx, call.ID, docURL, structured.Summary)
	})
	if err != nil {
		return fmt.Errorf("post confirmation: %w", err)
	}

	if err := e.store.SaveStepResult(ctx, run.ID, stepNotify, notifyResult{Posted: true}); err != nil {
		return fmt.Errorf("record %s result: %w", stepNotify, err)
	}
	return nil
}

// suspend parks the run in a waiting state after prompting a human. The
// prompt's message timestamp is stored with the run so a reaction on it can
// be traced back. A failed prompt is logged rather than fatal; the run still
// waits and can be answered through the API.
func (e *Engine) suspend(ctx context.Context, run *store.Run, state store.State, reason string, prompt func(context.Context) (string, error)) error {
	messageTS := ""
	if ts, err := prompt(ctx); err != nil {
		e.logger.Error("failed to post waiting prompt", "run_id", run.ID, "error", err)
	} else {
		messageTS = ts
	}

	if err := e.store.SetRunWaiting(ctx, run.ID, state, reason, messageTS); err != nil {
		return fmt.Errorf("park run: %w", err)
	}
	e.publish(events.SubjectRunWaiting, run, state, reason)
	e.logger.Info("run waiting on human input", "run_id", run.ID, "state", state, "reason", reason)
	return errSuspended
}

func (e *Engine) setState(ctx context.Context, run *store.Run, state store.State) error {
	if err := e.store.SetRunState(ctx, run.ID, state); err != nil {
		return fmt.Errorf("set state %s: %w", state, err)
	}
	run.State = state
	return nil
}

func (e *Engine) fail(ctx context.Context, run *store.Run, err error) error {
	if serr := e.store.SetRunFailed(ctx, run.ID, err.Error()); serr != nil {
		e.logger.Error("failed to mark run failed", "run_id", run.ID, "error", serr)
	}
	e.publish(events.SubjectRunFailed, run, store.StateFailed, err.Error())
	e.logger.Error("run failed", "run_id", run.ID, "call_id", run.CallID, "error", err)
	return err
}

func (e *Engine) publish(subject string, run *store.Run, state store.State, reason string) {
	if e.bus == nil {
		return
	}
	err := e.bus.Publish(subject, events.RunStatus{
		RunID:  run.ID.String(),
		CallID: run.CallID,
		State:  string(state),
		Reason: reason,
	})
	if err != nil {
		e.logger.Warn("failed to publish run status", "subject", subject, "error", err)
	}
}
