package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
	"github.com/stacklok/toolhive-catalog/internal/storage"
)

// Well known keys of the persisted sets
const (
	MarketplacesKey = "marketplaces.json"
	SkillsKey       = "skills.json"
	SkillReposKey   = "skill-repos.json"
)

// SetWriter reads, reconciles and writes one persisted set
type SetWriter[T catalog.Record] struct {
	store storage.BlobStore
	key   string
	merge MergeFunc[T]
	now   func() time.Time
}

// NewSetWriter creates a writer for the set stored under key
func NewSetWriter[T catalog.Record](store storage.BlobStore, key string, merge MergeFunc[T]) *SetWriter[T] {
	return &SetWriter[T]{
		store: store,
		key:   key,
		merge: merge,
		now:   time.Now,
	}
}

// NewMarketplaceWriter creates the writer of the marketplace set
func NewMarketplaceWriter(store storage.BlobStore) *SetWriter[catalog.Marketplace] {
	return NewSetWriter(store, MarketplacesKey, MergeMarketplace)
}

// NewSkillWriter creates the writer of the skill set
func NewSkillWriter(store storage.BlobStore) *SetWriter[catalog.Skill] {
	return NewSetWriter(store, SkillsKey, MergeSkill)
}

// NewSkillRepoWriter creates the writer of the skill repository set
func NewSkillRepoWriter(store storage.BlobStore) *SetWriter[catalog.SkillRepo] {
	return NewSetWriter(store, SkillReposKey, MergeSkillRepo)
}

// WithClock overrides the time source used for update timestamps
func (w *SetWriter[T]) WithClock(now func() time.Time) *SetWriter[T] {
	w.now = now
	return w
}

// Key returns the store key of the set
func (w *SetWriter[T]) Key() string {
	return w.key
}

// Load reads the stored set. A missing set is empty.
func (w *SetWriter[T]) Load(ctx context.Context) (*PersistedSet[T], error) {
	data, err := w.store.Get(ctx, w.key)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Debug("Record set not found, starting empty", "key", w.key)
		return NewPersistedSet[T](), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", w.key, err)
	}

	set, err := DecodeSet[T](data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", w.key, err)
	}
	return set, nil
}

// Save overwrites the stored set
func (w *SetWriter[T]) Save(ctx context.Context, set *PersistedSet[T]) error {
	data, err := set.Encode()
	if err != nil {
		return err
	}
	if err := w.store.Put(ctx, w.key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", w.key, err)
	}
	return nil
}

// LoadError wraps failures to read the stored set
type LoadError struct{ Err error }

func (e *LoadError) Error() string { return e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// SaveError wraps failures to write the reconciled set
type SaveError struct{ Err error }

func (e *SaveError) Error() string { return e.Err.Error() }
func (e *SaveError) Unwrap() error { return e.Err }

// Reconcile loads the stored set, merges discovered into it and writes the
// result unless dryRun is set. The summary is returned even when the write
// fails.
func (w *SetWriter[T]) Reconcile(ctx context.Context, discovered []T, scope Scope, dryRun bool) (Summary, error) {
	set, err := w.Load(ctx)
	if err != nil {
		return Summary{}, &LoadError{Err: err}
	}

	summary := set.Reconcile(discovered, scope, w.merge, w.now())

	if dryRun {
		slog.Info("Dry run, skipping write",
			"key", w.key,
			"added", summary.Added,
			"updated", summary.Updated,
			"removed", summary.Removed,
			"total", summary.Total)
		return summary, nil
	}

	if err := w.Save(ctx, set); err != nil {
		return summary, &SaveError{Err: err}
	}

	slog.Info("Record set reconciled",
		"key", w.key,
		"added", summary.Added,
		"updated", summary.Updated,
		"removed", summary.Removed,
		"total", summary.Total)
	return summary, nil
}
