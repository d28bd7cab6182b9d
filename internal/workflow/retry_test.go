package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/fenwick-labs/scrivener/internal/anthropic"
	"github.com/fenwick-labs/scrivener/internal/editplan"
	"github.com/fenwick-labs/scrivener/internal/gdoc"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad call date", editplan.ErrBadCallDate, false},
		{"no meeting block", editplan.ErrNoMeetingBlock, false},
		{"torn section", gdoc.ErrTornSection, false},
		{"wrapped sentinel", fmt.Errorf("plan edits: %w", editplan.ErrNoMeetingBlock), false},
		{"anthropic rate limit", &anthropic.APIError{Status: 429, Type: "rate_limit_error"}, true},
		{"anthropic overload", &anthropic.APIError{Status: 529, Type: "overloaded_error"}, true},
		{"anthropic bad request", &anthropic.APIError{Status: 400, Type: "invalid_request_error"}, false},
		{"google unauthorized", &googleapi.Error{Code: 401}, false},
		{"google forbidden", &googleapi.Error{Code: 403}, false},
		{"google not found", &googleapi.Error{Code: 404}, false},
		{"google rate limit", &googleapi.Error{Code: 429}, true},
		{"google server error", &googleapi.Error{Code: 503}, true},
		{"google bad request", &googleapi.Error{Code: 400}, false},
		{"wrapped google error", fmt.Errorf("get document: %w", &googleapi.Error{Code: 500}), true},
		{"plain network error", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	e := &Engine{logger: discardLogger()}
	policy := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	calls := 0
	err := e.retry(context.Background(), policy, "plan", func(context.Context) error {
		calls++
		return editplan.ErrNoMeetingBlock
	})
	if !errors.Is(err, editplan.ErrNoMeetingBlock) {
		t.Fatalf("expected the permanent error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("permanent error must not be retried, got %d attempts", calls)
	}
}

func TestRetry_HonorsContextCancellation(t *testing.T) {
	e := &Engine{logger: discardLogger()}
	policy := RetryPolicy{MaxAttempts: 5, InitialDelay: time.Minute, MaxDelay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := e.retry(ctx, policy, "fetch", func(context.Context) error {
		calls++
		return errors.New("connection reset")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("cancellation during backoff should stop further attempts, got %d", calls)
	}
}
