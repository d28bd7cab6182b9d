package notes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fenwick-labs/scrivener/internal/anthropic"
	"github.com/fenwick-labs/scrivener/internal/gdoc"
	"github.com/fenwick-labs/scrivener/internal/gong"
)

type Structurer struct {
	llm    *anthropic.Client
	logger *slog.Logger
}

func New(llm *anthropic.Client, logger *slog.Logger) *Structurer {
	return &Structurer{llm: llm, logger: logger}
}

// Structured is the model's three-section rendering of a call: the refreshed
// account snapshot, a short summary for the confirmation message, and the
// detailed notes spliced under the meeting's date block.
type Structured struct {
	Snapshot  string `json:"snapshot"`
	Summary   string `json:"summary"`
	CallNotes string `json:"call_notes"`
}

// Structure sends the transcript and the doc's current snapshot to the model
// and splits the response into its three sections.
func (s *Structurer) Structure(ctx context.Context, call *gong.Call, existingSnapshot string) (*Structured, error) {
	snapshot := existingSnapshot
	if snapshot == "" {
		snapshot = noSnapshotPlaceholder
	}
	prompt := fmt.Sprintf(callUserPrompt, snapshot, call.Title, call.ScheduledAt, call.Transcript)

	messages := []anthropic.Message{
		{Role: "user", Content: prompt},
	}

	s.logger.Info("structuring call transcript",
		"call_id", call.ID,
		"transcript_len", len(call.Transcript),
		"has_snapshot", existingSnapshot != "",
	)

	raw, err := s.llm.Complete(ctx, structuringPrompt, messages, 4096)
	if err != nil {
		return nil, fmt.Errorf("llm structuring: %w", err)
	}

	out := s.parse(raw)

	s.logger.Info("structured call notes",
		"call_id", call.ID,
		"snapshot_len", len(out.Snapshot),
		"summary_len", len(out.Summary),
		"notes_len", len(out.CallNotes),
	)

	return &out, nil
}

// parse splits a model response into its sections, degrading through the
// fallback ladder when the model drops a separator.
func (s *Structurer) parse(output string) Structured {
	if before, rest, ok := strings.Cut(output, summarySeparator); ok {
		if summary, notesText, ok := strings.Cut(rest, splitSeparator); ok {
			return Structured{
				Snapshot:  strings.TrimSpace(before),
				Summary:   strings.TrimSpace(summary),
				CallNotes: strings.TrimSpace(notesText),
			}
		}
	}

	if before, notesText, ok := strings.Cut(output, splitSeparator); ok {
		s.logger.Warn("response missing summary separator, synthesizing summary from notes")
		trimmed := strings.TrimSpace(notesText)
		return Structured{
			Snapshot:  strings.TrimSpace(before),
			Summary:   clipRunes(trimmed, 500),
			CallNotes: trimmed,
		}
	}

	s.logger.Warn("response has no section separators, carving snapshot by sentinel")
	if idx := strings.Index(output, gdoc.DefaultMarks.End); idx >= 0 {
		cut := idx + len(gdoc.DefaultMarks.End)
		return Structured{
			Snapshot:  output[:cut],
			CallNotes: output[cut:],
		}
	}
	return Structured{CallNotes: output}
}

func clipRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
