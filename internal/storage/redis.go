package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore keeps each key as a string value in Redis
type RedisStore struct {
	client    *goredis.Client
	keyPrefix string
}

var _ BlobStore = (*RedisStore)(nil)

// RedisOptions configures NewRedisStore
type RedisOptions struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:        opts.Address,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client, keyPrefix: opts.KeyPrefix}, nil
}

// Get implements BlobStore
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	data, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Put implements BlobStore
func (r *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.keyPrefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close implements BlobStore
func (r *RedisStore) Close() error {
	return r.client.Close()
}
