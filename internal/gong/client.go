package gong

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.gong.io"

// Client calls the Gong v2 API with access-key basic auth.
type Client struct {
	accessKey  string
	secret     string
	homeDomain string
	client     *http.Client
	baseURL    string
}

func NewClient(accessKey, secret, homeDomain string) *Client {
	return &Client{
		accessKey:  accessKey,
		secret:     secret,
		homeDomain: homeDomain,
		client:     &http.Client{Timeout: 60 * time.Second},
		baseURL:    defaultBaseURL,
	}
}

// SetTestTransport points the client at a test server instead of the real API.
func (c *Client) SetTestTransport(url string) {
	c.baseURL = url
}

// Participant is one party on the call.
type Participant struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Call is the transcript bundle for one recorded call. ScheduledAt is kept
// raw (epoch seconds or ISO-8601) and normalized later, at the point of
// date matching.
type Call struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	ScheduledAt  string        `json:"scheduled_at"`
	AccountName  string        `json:"account_name"`
	Participants []Participant `json:"participants"`
	Transcript   string        `json:"transcript"`
}

type callFilter struct {
	CallIDs []string `json:"callIds"`
}

type extensiveRequest struct {
	Filter          callFilter      `json:"filter"`
	ContentSelector contentSelector `json:"contentSelector"`
}

type contentSelector struct {
	ExposedFields exposedFields `json:"exposedFields"`
}

type exposedFields struct {
	Parties bool `json:"parties"`
}

type wireParty struct {
	EmailAddress string `json:"emailAddress"`
	Name         string `json:"name"`
}

type extensiveResponse struct {
	Calls []struct {
		MetaData struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Scheduled string `json:"scheduled"`
		} `json:"metaData"`
		Parties []wireParty `json:"parties"`
	} `json:"calls"`
}

type transcriptRequest struct {
	Filter callFilter `json:"filter"`
}

type transcriptResponse struct {
	CallTranscripts []struct {
		CallID     string `json:"callId"`
		Transcript []struct {
			SpeakerID string `json:"speakerId"`
			Topic     string `json:"topic"`
			Sentences []struct {
				Text string `json:"text"`
			} `json:"sentences"`
		} `json:"transcript"`
	} `json:"callTranscripts"`
}

// FetchCall pulls call metadata (with parties) and the speaker-attributed
// transcript for one call, and derives the account name from the first
// participant outside the home domain.
func (c *Client) FetchCall(ctx context.Context, callID string) (*Call, error) {
	var meta extensiveResponse
	err := c.postJSON(ctx, "/v2/calls/extensive", extensiveRequest{
		Filter:          callFilter{CallIDs: []string{callID}},
		ContentSelector: contentSelector{ExposedFields: exposedFields{Parties: true}},
	}, &meta)
	if err != nil {
		return nil, fmt.Errorf("fetch call metadata: %w", err)
	}
	if len(meta.Calls) == 0 {
		return nil, fmt.Errorf("call %s not found", callID)
	}
	callData := meta.Calls[0]

	var tr transcriptResponse
	err = c.postJSON(ctx, "/v2/calls/transcript", transcriptRequest{
		Filter: callFilter{CallIDs: []string{callID}},
	}, &tr)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}
	if len(tr.CallTranscripts) == 0 {
		return nil, fmt.Errorf("no transcript for call %s", callID)
	}

	participants := make([]Participant, 0, len(callData.Parties))
	for _, p := range callData.Parties {
		participants = append(participants, Participant{Email: p.EmailAddress, Name: p.Name})
	}

	return &Call{
		ID:           callID,
		Title:        callData.MetaData.Title,
		ScheduledAt:  callData.MetaData.Scheduled,
		AccountName:  AccountName(participants, c.homeDomain),
		Participants: participants,
		Transcript:   renderTranscript(tr),
	}, nil
}

func renderTranscript(tr transcriptResponse) string {
	var lines []string
	for _, seg := range tr.CallTranscripts[0].Transcript {
		texts := make([]string, 0, len(seg.Sentences))
		for _, s := range seg.Sentences {
			texts = append(texts, s.Text)
		}
		joined := strings.Join(texts, " ")
		if seg.Topic != "" {
			lines = append(lines, fmt.Sprintf("Speaker %s (%s): %s", seg.SpeakerID, seg.Topic, joined))
		} else {
			lines = append(lines, fmt.Sprintf("Speaker %s: %s", seg.SpeakerID, joined))
		}
	}
	return strings.Join(lines, "\n")
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.accessKey, c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
