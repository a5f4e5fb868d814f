// Package status provides run status tracking and persistence for the catalog pipelines.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/stacklok/toolhive-catalog/internal/storage"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusPrefix is the key prefix of status documents in the store
	StatusPrefix = "status"
)

// StatusPersistence defines the interface for run status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the run status of a pipeline
	SaveStatus(ctx context.Context, pipeline string, status *RunStatus) error

	// LoadStatus loads the run status of a pipeline.
	// Returns an empty RunStatus if none was saved yet (first run).
	LoadStatus(ctx context.Context, pipeline string) (*RunStatus, error)

	// LoadAllStatus loads the run status of every given pipeline
	LoadAllStatus(ctx context.Context, pipelines []string) (map[string]*RunStatus, error)
}

// blobStatusPersistence keeps status documents next to the record sets
type blobStatusPersistence struct {
	store storage.BlobStore
}

// NewStatusPersistence creates a status persistence backed by store
func NewStatusPersistence(store storage.BlobStore) StatusPersistence {
	return &blobStatusPersistence{store: store}
}

// StatusKey returns the store key of a pipeline's status document
func StatusKey(pipeline string) string {
	return path.Join(StatusPrefix, pipeline+".json")
}

// SaveStatus saves the run status as indented JSON
func (b *blobStatusPersistence) SaveStatus(ctx context.Context, pipeline string, status *RunStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status for pipeline '%s': %w", pipeline, err)
	}

	if err := b.store.Put(ctx, StatusKey(pipeline), data); err != nil {
		return fmt.Errorf("failed to write status for pipeline '%s': %w", pipeline, err)
	}
	return nil
}

// LoadStatus loads the run status of a pipeline
func (b *blobStatusPersistence) LoadStatus(ctx context.Context, pipeline string) (*RunStatus, error) {
	data, err := b.store.Get(ctx, StatusKey(pipeline))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &RunStatus{Pipeline: pipeline}, nil
		}
		return nil, fmt.Errorf("failed to read status for pipeline '%s': %w", pipeline, err)
	}

	var status RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status for pipeline '%s': %w", pipeline, err)
	}
	if status.Pipeline == "" {
		status.Pipeline = pipeline
	}

	return &status, nil
}

// LoadAllStatus loads the status of every pipeline. A status that cannot be
// read is skipped so the others are still returned.
func (b *blobStatusPersistence) LoadAllStatus(ctx context.Context, pipelines []string) (map[string]*RunStatus, error) {
	result := make(map[string]*RunStatus, len(pipelines))
	var errs []error

	for _, pipeline := range pipelines {
		status, err := b.LoadStatus(ctx, pipeline)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		result[pipeline] = status
	}

	if len(result) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}
