// Package storage provides the byte stores that hold persisted record sets
// and run status. Each value is addressed by a single well-known key and is
// always read and written whole.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go BlobStore

// ErrNotFound is returned by Get when no value exists for a key
var ErrNotFound = errors.New("key not found")

// BlobStore is a get/put-by-key byte store
type BlobStore interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key
	Put(ctx context.Context, key string, data []byte) error

	// Close releases any resources held by the store
	Close() error
}

// Locker is implemented by stores that can exclude writers running in other
// processes.
type Locker interface {
	// TryLock takes the named lock without waiting. ok is false when the
	// lock is held elsewhere; unlock is only set when ok is true.
	TryLock(ctx context.Context, name string) (unlock func(), ok bool, err error)
}

// ValidateKey rejects keys that could escape the store namespace
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("key %q must be relative", key)
	}
	if cleaned := path.Clean(key); cleaned != key || strings.HasPrefix(cleaned, "..") {
		return fmt.Errorf("key %q is not a clean relative path", key)
	}
	return nil
}
