package slack

import (
	"encoding/json"
	"fmt"
)

// ReactionEvent is one emoji reaction on a posted prompt, as bridged onto
// NATS by the Slack event forwarder.
type ReactionEvent struct {
	Reaction  string `json:"reaction"`
	UserID    string `json:"user_id"`
	Channel   string `json:"channel"`
	MessageTS string `json:"message_ts"`
}

// ConfirmVerdict maps a Slack reaction on a waiting-run prompt to an action.
type ConfirmVerdict string

const (
	// VerdictConfirmed resumes the waiting run (the human did what the
	// prompt asked, e.g. created the dated section).
	VerdictConfirmed ConfirmVerdict = "confirmed"
	// VerdictRejected abandons the waiting run.
	VerdictRejected ConfirmVerdict = "rejected"
	// VerdictIgnored is any reaction that carries no meaning here.
	VerdictIgnored ConfirmVerdict = "ignored"
)

// ParseReaction converts a Slack reaction emoji name to a verdict.
func ParseReaction(reaction string) ConfirmVerdict {
	switch reaction {
	case "+1", "thumbsup", "white_check_mark":
		return VerdictConfirmed
	case "-1", "thumbsdown", "x":
		return VerdictRejected
	default:
		return VerdictIgnored
	}
}

// ParseReactionEvent decodes a forwarder message into a ReactionEvent. The
// forwarder nests event fields under a metadata key and sends the emoji name
// as Slack renders it, usually wrapped in colons (":+1:").
func ParseReactionEvent(data []byte) (*ReactionEvent, error) {
	var wrapper struct {
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse reaction event: %w", err)
	}

	evt := &ReactionEvent{
		Reaction:  wrapper.Metadata["text"],
		UserID:    wrapper.Metadata["user_id"],
		Channel:   wrapper.Metadata["channel_id"],
		MessageTS: wrapper.Metadata["message_ts"],
	}

	// Strip one surrounding colon pair so the verdict switch sees bare names.
	if len(evt.Reaction) > 2 && evt.Reaction[0] == ':' && evt.Reaction[len(evt.Reaction)-1] == ':' {
		evt.Reaction = evt.Reaction[1 : len(evt.Reaction)-1]
	}

	return evt, nil
}
