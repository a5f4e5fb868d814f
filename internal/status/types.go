package status

import (
	"time"

	pkgsync "github.com/stacklok/toolhive-catalog/internal/sync"
)

// RunPhase represents the current phase of a pipeline run
type RunPhase string

const (
	// RunPhaseRunning means a run is in progress
	RunPhaseRunning RunPhase = "Running"

	// RunPhaseComplete means the last run completed successfully
	RunPhaseComplete RunPhase = "Complete"

	// RunPhaseFailed means the last run failed
	RunPhaseFailed RunPhase = "Failed"
)

// RunStatus is the persisted state of one pipeline
type RunStatus struct {
	// Pipeline is the pipeline name
	Pipeline string `json:"pipeline"`

	// Phase represents the current run phase
	Phase RunPhase `json:"phase,omitempty"`

	// Message provides additional information about the last run
	Message string `json:"message,omitempty"`

	// Reason is the failure reason of the last run, empty on success
	Reason string `json:"reason,omitempty"`

	// RunID identifies the last run
	RunID string `json:"runId,omitempty"`

	// LastAttempt is when the last run started
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of runs since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSuccess is when the last successful run finished
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`

	// SyncInterval is the configured interval between periodic runs (e.g., "24h")
	SyncInterval string `json:"syncInterval,omitempty"`

	// LastReport is the report of the last run that produced one
	LastReport *pkgsync.Report `json:"lastReport,omitempty"`
}

// IsRunning reports whether a run is in progress
func (s *RunStatus) IsRunning() bool {
	return s != nil && s.Phase == RunPhaseRunning
}
