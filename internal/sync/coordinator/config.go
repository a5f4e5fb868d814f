package coordinator

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/stacklok/toolhive-catalog/internal/config"
)

const (
	// defaultSyncInterval applies when a pipeline has no usable interval
	defaultSyncInterval = 24 * time.Hour

	// jitterDivisor bounds the random offset to ±interval/jitterDivisor
	jitterDivisor = 10
)

// getSyncInterval extracts the sync interval from the pipeline's policy configuration
func getSyncInterval(policy *config.SyncPolicyConfig) time.Duration {
	if policy != nil && policy.Interval != "" {
		if interval, err := time.ParseDuration(policy.Interval); err == nil && interval > 0 {
			return interval
		}
		slog.Warn("Invalid sync interval, using default",
			"interval", policy.Interval,
			"default", defaultSyncInterval)
	}

	return defaultSyncInterval
}

// withJitter applies a random offset of up to ±interval/10 so that replicas
// sharing a store do not all run at the same moment
func withJitter(interval time.Duration) time.Duration {
	spread := int64(interval / jitterDivisor)
	if spread <= 0 {
		return interval
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for scheduling jitter
	offset := time.Duration(rand.Int64N(2*spread)) - time.Duration(spread)
	return interval + offset
}

// isDue reports whether a pipeline whose last success was at lastSuccess
// should run now
func isDue(lastSuccess *time.Time, interval time.Duration, now time.Time) bool {
	if lastSuccess == nil {
		return true
	}
	return !now.Before(lastSuccess.Add(interval))
}
