package v1

import (
	"github.com/stacklok/toolhive-catalog/internal/status"
	pkgsync "github.com/stacklok/toolhive-catalog/internal/sync"
)

// SyncResponse is the body of POST /v1/sync/{pipeline}
type SyncResponse struct {
	// Report is set whenever the run produced one, including failed writes
	Report *pkgsync.Report `json:"report,omitempty"`

	// Error and Reason describe a failed run
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// StatusResponse is the body of GET /v1/status
type StatusResponse struct {
	Pipelines map[string]*status.RunStatus `json:"pipelines"`
}
