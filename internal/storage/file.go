package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockDir holds the lock files under the base path
const lockDir = ".locks"

// FileStore keeps each key as a file under a base directory
type FileStore struct {
	basePath string
}

var (
	_ BlobStore = (*FileStore)(nil)
	_ Locker    = (*FileStore)(nil)
)

// NewFileStore creates a file backed store rooted at basePath
func NewFileStore(basePath string) (*FileStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Get implements BlobStore
func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	//nolint:gosec // Keys are validated to stay under the base path
	data, err := os.ReadFile(filepath.Join(f.basePath, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	return data, nil
}

// Put implements BlobStore. The write goes to a temporary file that is
// renamed into place, so readers never observe a partial value.
func (f *FileStore) Put(_ context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	filePath := filepath.Join(f.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary file for %s: %w", key, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file for %s: %w", key, err)
	}

	return nil
}

// TryLock implements Locker with an advisory lock file, so two processes
// sharing a data directory never write it at the same time.
func (f *FileStore) TryLock(_ context.Context, name string) (func(), bool, error) {
	if err := ValidateKey(name); err != nil {
		return nil, false, err
	}

	lockPath := filepath.Join(f.basePath, lockDir, filepath.FromSlash(name)+".lock")
	if err := os.MkdirAll(filepath.Dir(lockPath), 0750); err != nil {
		return nil, false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("failed to take lock %s: %w", name, err)
	}
	if !locked {
		return nil, false, nil
	}

	unlock := func() {
		if err := fileLock.Unlock(); err != nil {
			slog.Warn("Failed to release lock", "lock", name, "error", err)
		}
	}
	return unlock, true, nil
}

// Close implements BlobStore
func (*FileStore) Close() error {
	return nil
}
