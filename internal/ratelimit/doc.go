// Package ratelimit runs calls against rate limited APIs.
//
// Retry re-invokes an operation that failed with a rate limit response
// (HTTP 403 or 429). The delay before the next attempt is the server's
// Retry-After value when present, otherwise an exponential backoff starting
// at BaseDelay. Both are capped at MaxDelay. Any other error is returned
// immediately without sleeping.
//
// Batch bounds burst concurrency independently of retries: items are split
// into chunks of Concurrency, each chunk is run to completion (successes and
// failures alike) before the next starts, and DelayBetweenBatches is slept
// between chunks but not after the last one. Results keep input order.
package ratelimit
