package docfinder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fenwick-labs/scrivener/internal/anthropic"
	"github.com/fenwick-labs/scrivener/internal/google"
)

// Finder locates the meeting-notes document for an account. Strategies are
// tried in order until one yields candidates; the candidate set is then
// narrowed deterministically where possible and by the model otherwise.
// An empty URL with a nil error means discovery gave up and a human has to
// provide the document.
type Finder struct {
	llm        *anthropic.Client
	homeDomain string
	logger     *slog.Logger
	strategies []Strategy
}

func New(drive driveSearcher, llm *anthropic.Client, homeDomain string, logger *slog.Logger) *Finder {
	return &Finder{
		llm:        llm,
		homeDomain: homeDomain,
		logger:     logger,
		strategies: []Strategy{
			&folderNameStrategy{drive: drive},
			&emailTextStrategy{drive: drive, homeDomain: homeDomain},
			&folderNameStrategy{drive: drive, prefixLen: 8},
			&folderNameStrategy{drive: drive, prefixLen: 6},
			&folderNameStrategy{drive: drive, prefixLen: 4},
		},
	}
}

// Find returns the destination doc URL, or "" when no confident match exists.
func (f *Finder) Find(ctx context.Context, q Query) (string, error) {
	for _, s := range f.strategies {
		cands, err := s.Candidates(ctx, q)
		if err != nil {
			return "", fmt.Errorf("%s strategy: %w", s.Name(), err)
		}
		if len(cands) == 0 {
			continue
		}
		f.logger.Info("found candidate docs",
			"call_id", q.CallID,
			"strategy", s.Name(),
			"count", len(cands),
		)
		return f.choose(ctx, q, cands)
	}

	f.logger.Warn("no candidate docs found", "call_id", q.CallID, "account", q.AccountName)
	return "", nil
}

// choose picks from a candidate set. A doc named like a notes doc wins
// outright, a lone candidate wins, anything else goes to the model.
func (f *Finder) choose(ctx context.Context, q Query, cands []Candidate) (string, error) {
	for _, c := range cands {
		name := strings.ToLower(c.Name)
		if strings.Contains(name, "notes") || strings.Contains(name, "use case") {
			f.logger.Info("selected doc by name", "doc_id", c.ID, "doc_name", c.Name)
			return google.DocURL(c.ID), nil
		}
	}

	if len(cands) == 1 {
		f.logger.Info("selected only candidate", "doc_id", cands[0].ID, "doc_name", cands[0].Name)
		return google.DocURL(cands[0].ID), nil
	}

	return f.disambiguate(ctx, q, cands)
}

type verdictOption struct {
	DocID   string `json:"doc_id"`
	DocName string `json:"doc_name"`
}

type verdict struct {
	DocID           string          `json:"doc_id"`
	DocName         string          `json:"doc_name"`
	Confidence      string          `json:"confidence"`
	Reasoning       string          `json:"reasoning"`
	NeedsUserChoice bool            `json:"needs_user_choice"`
	Options         []verdictOption `json:"options"`
	Error           string          `json:"error"`
}

func (f *Finder) disambiguate(ctx context.Context, q Query, cands []Candidate) (string, error) {
	candJSON, err := json.MarshalIndent(cands, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}

	customer := q.AccountName
	if parts := customerParticipants(q.Participants, f.homeDomain); len(parts) > 0 {
		customer = fmt.Sprintf("%s <%s>", parts[0].Name, parts[0].Email)
	}

	prompt := fmt.Sprintf(docFinderPrompt, customer, candJSON)
	messages := []anthropic.Message{
		{Role: "user", Content: prompt},
	}

	f.logger.Info("asking model to identify notes doc", "call_id", q.CallID, "candidates", len(cands))

	raw, err := f.llm.Complete(ctx, "", messages, 1024)
	if err != nil {
		return "", fmt.Errorf("llm doc selection: %w", err)
	}

	var v verdict
	if err := json.Unmarshal([]byte(stripFences(raw)), &v); err != nil {
		f.logger.Error("failed to parse doc verdict", "error", err, "raw", raw)
		return "", nil
	}

	switch {
	case v.Error != "":
		f.logger.Warn("model found no valid doc", "reasoning", v.Reasoning)
		return "", nil
	case v.NeedsUserChoice:
		f.logger.Warn("model needs user choice", "reasoning", v.Reasoning, "options", len(v.Options))
		return "", nil
	case v.DocID == "":
		f.logger.Warn("model verdict has no doc id", "raw", raw)
		return "", nil
	}

	f.logger.Info("model selected doc",
		"doc_id", v.DocID,
		"doc_name", v.DocName,
		"confidence", v.Confidence,
		"reasoning", v.Reasoning,
	)
	return google.DocURL(v.DocID), nil
}

// stripFences pulls the JSON body out of a fenced code block when the model
// wraps its answer in one.
func stripFences(s string) string {
	if _, after, ok := strings.Cut(s, "```json"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	if _, after, ok := strings.Cut(s, "```"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	return strings.TrimSpace(s)
}
