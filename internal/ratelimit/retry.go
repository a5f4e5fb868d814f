package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stacklok/toolhive-catalog/internal/httpclient"
)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryOptions configures Retry
type RetryOptions struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// BaseDelay is the first backoff delay when no Retry-After is given
	BaseDelay time.Duration
	// MaxDelay caps every delay, including Retry-After. Zero means no cap.
	MaxDelay time.Duration
	// Label identifies the operation in logs
	Label string
	// Sleep overrides the wait between attempts
	Sleep SleepFunc
}

// Operation is a unit of work that can be retried
type Operation[T any] func(ctx context.Context) (T, error)

// Retry runs op, retrying it while it fails with a rate limit error.
// After MaxRetries retries the last error is returned unchanged.
func Retry[T any](ctx context.Context, op Operation[T], opts RetryOptions) (T, error) {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = math.MaxInt64
	}
	schedule := newSchedule(opts.BaseDelay, maxDelay)

	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		// Advance the schedule on every retry so that it tracks base*2^attempt
		// even when a Retry-After value is used instead
		exponential := schedule.NextBackOff()

		if !IsRateLimited(err) || attempt >= opts.MaxRetries {
			return result, err
		}

		delay := exponential
		if retryAfter, ok := RetryAfter(err); ok {
			delay = min(retryAfter, maxDelay)
		}

		slog.Info("Rate limited, retrying",
			"label", opts.Label,
			"attempt", attempt+1,
			"max_retries", opts.MaxRetries,
			"delay", delay)

		if err := sleep(ctx, delay); err != nil {
			return result, err
		}
	}
}

// IsRateLimited reports whether err carries an HTTP 403 or 429 status
func IsRateLimited(err error) bool {
	var httpErr *httpclient.HTTPError
	return errors.As(err, &httpErr) && httpErr.IsRateLimit()
}

// RetryAfter returns the server supplied Retry-After delay carried by err
func RetryAfter(err error) (time.Duration, bool) {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter, true
	}
	return 0, false
}

// Sleep waits for d, returning early with the context error if ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// newSchedule returns a jitter free exponential schedule producing
// base, base*2, base*4, ... capped at maxDelay.
func newSchedule(base, maxDelay time.Duration) *backoff.ExponentialBackOff {
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = base
	schedule.Multiplier = 2
	schedule.RandomizationFactor = 0
	schedule.MaxInterval = maxDelay
	schedule.Reset()
	return schedule
}
