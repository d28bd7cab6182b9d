package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPostRunDone_Success(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xoxb-test" {
			t.Errorf("expected Bearer xoxb-test, got %q", r.Header.Get("Authorization"))
		}

		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"ts": "1234567890.123456",
		})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	err := p.PostRunDone(context.Background(), "8675309", "https://docs.google.com/document/d/abc/edit", "- Agreed on rollout\n- Review pending")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payload["channel"] != "C123" {
		t.Errorf("expected channel C123, got %v", payload["channel"])
	}

	text, _ := payload["text"].(string)
	if !strings.Contains(text, "✅ Processed call `8675309`") {
		t.Errorf("unexpected text %q", text)
	}
	if !strings.Contains(text, "<https://docs.google.com/document/d/abc/edit|Google Doc>") {
		t.Errorf("text should link the doc, got %q", text)
	}

	blocks, _ := payload["blocks"].([]any)
	if len(blocks) != 2 {
		t.Fatalf("expected headline and summary blocks, got %d", len(blocks))
	}
}

func TestPostRunDone_NoSummary(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1.2"})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	if err := p.PostRunDone(context.Background(), "8675309", "https://docs.google.com/document/d/abc/edit", "  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blocks, _ := payload["blocks"].([]any)
	if len(blocks) != 1 {
		t.Errorf("blank summary should not get its own block, got %d blocks", len(blocks))
	}
}

func TestPostSectionNeeded_ReturnsTS(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"ts": "1700000000.000100",
		})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	ts, err := p.PostSectionNeeded(context.Background(), "8675309", "2023-11-14", "https://docs.google.com/document/d/abc/edit", "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != "1700000000.000100" {
		t.Errorf("expected message ts, got %q", ts)
	}

	text, _ := payload["text"].(string)
	for _, want := range []string{"2023-11-14", "8675309", "run-1", "--section-ready"} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt should mention %q, got %q", want, text)
		}
	}
}

func TestPostDocNeeded_MentionsRun(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "3.4"})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	ts, err := p.PostDocNeeded(context.Background(), "8675309", "Acme Corp", "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != "3.4" {
		t.Errorf("expected message ts, got %q", ts)
	}

	text, _ := payload["text"].(string)
	for _, want := range []string{"Acme Corp", "run-1", "--doc-url"} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt should mention %q, got %q", want, text)
		}
	}
}

func TestPostSummary_PlainText(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "5.6"})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	if err := p.PostSummary(context.Background(), "*Backfill Summary*\n3 processed, 1 skipped"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload["text"] != "*Backfill Summary*\n3 processed, 1 skipped" {
		t.Errorf("unexpected text %v", payload["text"])
	}
	if _, ok := payload["blocks"]; ok {
		t.Error("summary posts are plain text")
	}
}

func TestPost_SlackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":    false,
			"error": "channel_not_found",
		})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	err := p.PostRunDone(context.Background(), "8675309", "https://docs.google.com/document/d/abc/edit", "")
	if err == nil {
		t.Fatal("expected error for slack error response")
	}
	if !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("error should carry the slack error code, got %v", err)
	}
}
