package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore keeps each key as an object in a Google Cloud Storage bucket
type GCSStore struct {
	client *gcs.Client
	bucket string
	prefix string
}

var _ BlobStore = (*GCSStore)(nil)

// GCSOptions configures NewGCSStore
type GCSOptions struct {
	Bucket string
	// Prefix is prepended to every key as an object name directory
	Prefix string
	// Endpoint points the client at an emulator; authentication is disabled when set
	Endpoint string
}

// NewGCSStore creates a bucket backed store
func NewGCSStore(ctx context.Context, opts GCSOptions) (*GCSStore, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket cannot be empty")
	}

	var clientOpts []option.ClientOption
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStore{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// ObjectName returns the object name a key is stored under
func (g *GCSStore) ObjectName(key string) string {
	if g.prefix == "" {
		return key
	}
	return path.Join(g.prefix, key)
}

// Get implements BlobStore
func (g *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	reader, err := g.client.Bucket(g.bucket).Object(g.ObjectName(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Put implements BlobStore. The object only becomes visible once the writer
// is closed successfully.
func (g *GCSStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	writer := g.client.Bucket(g.bucket).Object(g.ObjectName(key)).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to commit object %s: %w", key, err)
	}
	return nil
}

// Close implements BlobStore
func (g *GCSStore) Close() error {
	return g.client.Close()
}
