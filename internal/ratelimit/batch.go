package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchOptions configures Batch
type BatchOptions struct {
	// Concurrency is the chunk size. Zero or less runs every item in a single chunk.
	Concurrency int
	// DelayBetweenBatches is slept between chunks, never after the last one
	DelayBetweenBatches time.Duration
	// Sleep overrides the wait between chunks
	Sleep SleepFunc
}

// Settled is the outcome of one item in a batch
type Settled[R any] struct {
	Value R
	Err   error
}

// OK reports whether the item succeeded
func (s Settled[R]) OK() bool {
	return s.Err == nil
}

// Batch applies fn to every item, Concurrency items at a time, and collects
// every outcome. A failing item never stops the batch. If ctx is cancelled
// while waiting between chunks, the remaining items settle with the context error.
func Batch[T, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (R, error), opts BatchOptions) []Settled[R] {
	results := make([]Settled[R], len(items))
	if len(items) == 0 {
		return results
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	size := opts.Concurrency
	if size <= 0 {
		size = len(items)
	}

	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))

		// The group is only used to wait; item errors are kept per result
		// so that one failure never cancels its siblings.
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				value, err := fn(ctx, items[i])
				results[i] = Settled[R]{Value: value, Err: err}
				return nil
			})
		}
		_ = g.Wait()

		if end == len(items) {
			break
		}
		if opts.DelayBetweenBatches > 0 {
			slog.Debug("Waiting between batches", "delay", opts.DelayBetweenBatches, "completed", end, "total", len(items))
			if err := sleep(ctx, opts.DelayBetweenBatches); err != nil {
				for i := end; i < len(items); i++ {
					results[i] = Settled[R]{Err: err}
				}
				break
			}
		}
	}

	return results
}
