package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects on the scrivener bus. The worker consumes the trigger and signal
// subjects; run.* subjects fan out status for anything listening.
const (
	SubjectCallRecorded  = "scrivener.call.recorded"
	SubjectDocURLSignal  = "scrivener.signal.docurl"
	SubjectSectionSignal = "scrivener.signal.section"
	SubjectRunWaiting    = "scrivener.run.waiting"
	SubjectRunCompleted  = "scrivener.run.completed"
	SubjectRunFailed     = "scrivener.run.failed"

	// SubjectSlackReaction carries reaction events bridged onto the bus by
	// the Slack event forwarder.
	SubjectSlackReaction = "slack.events.reaction"
)

// QueueWorkers is the queue group workers join on the trigger, signal, and
// reaction subjects. Within a group NATS delivers each message to one member,
// so running a second worker does not double-process calls.
const QueueWorkers = "scrivener-workers"

// CallRecorded triggers a new run for a recorded call.
type CallRecorded struct {
	CallID string `json:"call_id"`
}

// DocURLSignal resolves a run waiting on a destination document.
type DocURLSignal struct {
	RunID  string `json:"run_id"`
	DocURL string `json:"doc_url"`
}

// SectionSignal tells a waiting run that the dated meeting block now exists.
type SectionSignal struct {
	RunID string `json:"run_id"`
}

// RunStatus is the payload fanned out on the run.* subjects.
type RunStatus struct {
	RunID  string `json:"run_id"`
	CallID string `json:"call_id"`
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// QueueSubscribe is Subscribe within a queue group.
func (c *Client) QueueSubscribe(subject, queue string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("queue subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject, "queue", queue)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
