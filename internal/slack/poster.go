package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostRunDone announces a processed call, linking the updated doc and
// attaching the call summary when the model produced one.
func (p *Poster) PostRunDone(ctx context.Context, callID, docURL, summary string) error {
	text := fmt.Sprintf("✅ Processed call `%s` - Notes added to <%s|Google Doc>", callID, docURL)

	blocks := []map[string]any{
		{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": text},
		},
	}
	if strings.TrimSpace(summary) != "" {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": summary},
		})
	}

	ts, err := p.postMessage(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks":  blocks,
	})
	if err != nil {
		return err
	}

	p.logger.Info("posted run confirmation", "ts", ts, "call_id", callID)
	return nil
}

// PostDocNeeded asks a human for the destination doc when discovery comes up
// empty. Returns the message timestamp so a reaction on it can be traced
// back to the waiting run.
func (p *Poster) PostDocNeeded(ctx context.Context, callID, accountName, runID string) (string, error) {
	text := fmt.Sprintf(
		"⚠️ Could not find a notes doc for call `%s` (account %q).\nProvide one with `scrivener signal %s --doc-url=<url>`, or react :-1: to abandon the run.",
		callID, accountName, runID,
	)

	ts, err := p.postMessage(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
	})
	if err != nil {
		return "", err
	}

	p.logger.Info("posted doc-needed prompt", "ts", ts, "call_id", callID, "run_id", runID)
	return ts, nil
}

// PostSectionNeeded asks a human to create the dated meeting block the notes
// need. Returns the message timestamp; a :+1: reaction on it resumes the run.
func (p *Poster) PostSectionNeeded(ctx context.Context, callID, day, docURL, runID string) (string, error) {
	text := fmt.Sprintf(
		"⚠️ No meeting block for %s in <%s|the notes doc> (call `%s`).\nCreate the dated section, then react :+1: or run `scrivener signal %s --section-ready`.",
		day, docURL, callID, runID,
	)

	ts, err := p.postMessage(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
	})
	if err != nil {
		return "", err
	}

	p.logger.Info("posted section-needed prompt", "ts", ts, "call_id", callID, "run_id", runID)
	return ts, nil
}

// PostSummary posts a plain status message, used for batch operation
// summaries.
func (p *Poster) PostSummary(ctx context.Context, text string) error {
	_, err := p.postMessage(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
	})
	return err
}

func (p *Poster) postMessage(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	return slackResp.TS, nil
}
