package writer

import (
	"time"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
)

// Scope is the set of keys a run considered. Only stored records whose key
// is in scope can be removed by that run.
type Scope map[string]struct{}

// NewScope builds a scope from keys
func NewScope(keys ...string) Scope {
	scope := make(Scope, len(keys))
	for _, key := range keys {
		scope[key] = struct{}{}
	}
	return scope
}

// Add inserts key into the scope
func (s Scope) Add(key string) {
	s[key] = struct{}{}
}

// Contains reports whether key is in scope
func (s Scope) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// Summary counts the changes a reconcile made
type Summary struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Total   int `json:"total"`
}

// MergeFunc copies the discovered owned fields onto a stored record and
// returns the result. It must leave discovery time and origin alone.
type MergeFunc[T catalog.Record] func(stored, discovered T, now time.Time) T

// Reconcile merges discovered into the set. Stored records with a
// discovered key are merged, unknown keys are appended, and stored records
// whose key is in scope but was not discovered are removed. Records outside
// scope are never touched.
func (s *PersistedSet[T]) Reconcile(discovered []T, scope Scope, merge MergeFunc[T], now time.Time) Summary {
	var summary Summary
	seen := make(map[string]struct{}, len(discovered))

	for _, record := range discovered {
		key := record.Key()
		seen[key] = struct{}{}

		if i, ok := s.index[key]; ok {
			s.entries[i].record = merge(s.entries[i].record, record, now)
			summary.Updated++
			continue
		}

		s.upsert(entry[T]{record: record})
		summary.Added++
	}

	before := s.Len()
	s.retain(func(record T) bool {
		key := record.Key()
		if !scope.Contains(key) {
			return true
		}
		_, found := seen[key]
		return found
	})
	summary.Removed = before - s.Len()
	summary.Total = s.Len()

	return summary
}
