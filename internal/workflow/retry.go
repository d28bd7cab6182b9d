package workflow

import (
	"context"
	"errors"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/fenwick-labs/scrivener/internal/anthropic"
	"github.com/fenwick-labs/scrivener/internal/editplan"
	"github.com/fenwick-labs/scrivener/internal/gdoc"
	"github.com/fenwick-labs/scrivener/internal/google"
)

// RetryPolicy bounds the in-process retries of one step.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

var (
	defaultRetry = RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second}

	// singleAttempt is for the first splice attempt, where a missing meeting
	// block has to surface immediately instead of burning retries.
	singleAttempt = RetryPolicy{MaxAttempts: 1}
)

// retry runs fn under policy, backing off exponentially between attempts.
// Permanent errors short-circuit.
func (e *Engine) retry(ctx context.Context, policy RetryPolicy, step string, fn func(context.Context) error) error {
	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == policy.MaxAttempts {
			return lastErr
		}

		e.logger.Warn("step failed, retrying",
			"step", step,
			"attempt", attempt,
			"error", lastErr,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return lastErr
}

// retryable separates transient failures from ones that will never succeed on
// a rerun: malformed inputs, half-delimited snapshots, missing meeting blocks
// (those suspend instead), and API rejections that are not rate limits or
// server errors. Unclassified errors are treated as transient.
func retryable(err error) bool {
	if errors.Is(err, editplan.ErrBadCallDate) ||
		errors.Is(err, editplan.ErrNoMeetingBlock) ||
		errors.Is(err, gdoc.ErrTornSection) {
		return false
	}

	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return anthropic.Retryable(err)
	}

	if google.IsUnauthorized(err) || google.IsForbidden(err) || google.IsNotFound(err) {
		return false
	}
	if google.IsTransient(err) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		// Any other API rejection is permanent: malformed requests, bad
		// ranges, revoked grants.
		return false
	}

	return true
}
