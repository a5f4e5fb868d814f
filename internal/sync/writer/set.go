// Package writer loads persisted record sets, reconciles them with the
// records discovered by a run and writes them back as a whole.
package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
)

const jsonIndent = "  "

type entry[T catalog.Record] struct {
	record T
	// extra holds fields written by other tools that T does not declare
	extra map[string]json.RawMessage
}

// PersistedSet is the in-memory form of one persisted collection. Record
// order is the stored order; new records are appended. Fields a record type
// does not know about survive a decode/encode cycle untouched.
type PersistedSet[T catalog.Record] struct {
	entries []entry[T]
	index   map[string]int
}

// NewPersistedSet returns an empty set
func NewPersistedSet[T catalog.Record]() *PersistedSet[T] {
	return &PersistedSet[T]{index: make(map[string]int)}
}

// DecodeSet parses a stored JSON array. Empty input is an empty set. When a
// key appears more than once the last record wins and keeps the position of
// the first.
func DecodeSet[T catalog.Record](data []byte) (*PersistedSet[T], error) {
	set := NewPersistedSet[T]()
	if len(bytes.TrimSpace(data)) == 0 {
		return set, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse record set: %w", err)
	}

	known := knownFields[T]()
	for i, item := range raw {
		var record T
		if err := json.Unmarshal(item, &record); err != nil {
			return nil, fmt.Errorf("failed to parse record %d: %w", i, err)
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			return nil, fmt.Errorf("failed to parse record %d: %w", i, err)
		}
		for name := range known {
			delete(fields, name)
		}
		if len(fields) == 0 {
			fields = nil
		}

		set.upsert(entry[T]{record: record, extra: fields})
	}
	return set, nil
}

// Encode serializes the set as an indented JSON array
func (s *PersistedSet[T]) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range s.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		item, err := encodeEntry(e)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record %s: %w", e.record.Key(), err)
		}
		buf.Write(item)
	}
	buf.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", jsonIndent); err != nil {
		return nil, fmt.Errorf("failed to format record set: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Records returns the records in stored order
func (s *PersistedSet[T]) Records() []T {
	records := make([]T, 0, len(s.entries))
	for _, e := range s.entries {
		records = append(records, e.record)
	}
	return records
}

// Get returns the record stored under key
func (s *PersistedSet[T]) Get(key string) (T, bool) {
	i, ok := s.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return s.entries[i].record, true
}

// Len returns the number of records
func (s *PersistedSet[T]) Len() int {
	return len(s.entries)
}

// Clone returns an independent copy of the set
func (s *PersistedSet[T]) Clone() *PersistedSet[T] {
	clone := &PersistedSet[T]{
		entries: slices.Clone(s.entries),
		index:   make(map[string]int, len(s.index)),
	}
	for key, i := range s.index {
		clone.index[key] = i
	}
	return clone
}

func (s *PersistedSet[T]) upsert(e entry[T]) {
	key := e.record.Key()
	if i, ok := s.index[key]; ok {
		s.entries[i] = e
		return
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, e)
}

// retain keeps the entries for which keep returns true
func (s *PersistedSet[T]) retain(keep func(T) bool) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if keep(e.record) {
			kept = append(kept, e)
		}
	}
	clear(s.entries[len(kept):])
	s.entries = kept

	clear(s.index)
	for i, e := range s.entries {
		s.index[e.record.Key()] = i
	}
}

// encodeEntry writes the declared fields in struct order followed by the
// preserved extra fields in key order.
func encodeEntry[T catalog.Record](e entry[T]) ([]byte, error) {
	body, err := json.Marshal(e.record)
	if err != nil {
		return nil, err
	}
	if len(e.extra) == 0 {
		return body, nil
	}

	names := make([]string, 0, len(e.extra))
	for name := range e.extra {
		names = append(names, name)
	}
	slices.Sort(names)

	var buf bytes.Buffer
	buf.Write(body[:len(body)-1])
	for i, name := range names {
		if i > 0 || len(body) > 2 {
			buf.WriteByte(',')
		}
		encodedName, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedName)
		buf.WriteByte(':')
		buf.Write(e.extra[name])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var knownFieldsCache sync.Map

// knownFields returns the JSON names declared by T
func knownFields[T any]() map[string]struct{} {
	typ := reflect.TypeFor[T]()
	if cached, ok := knownFieldsCache.Load(typ); ok {
		return cached.(map[string]struct{})
	}

	fields := make(map[string]struct{})
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = field.Name
		}
		fields[name] = struct{}{}
	}

	knownFieldsCache.Store(typ, fields)
	return fields
}
