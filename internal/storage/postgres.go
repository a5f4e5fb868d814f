package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Registers the pgx5:// database driver used by the migrator
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore keeps each key as a row of the catalog_blobs table
type PostgresStore struct {
	pool *pgxpool.Pool
}

var (
	_ BlobStore = (*PostgresStore)(nil)
	_ Locker    = (*PostgresStore)(nil)
)

// PostgresOptions configures NewPostgresStore. URL takes precedence over the
// individual connection fields when set.
type PostgresOptions struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// ConnectionString renders the options as a postgres:// URL
func (o PostgresOptions) ConnectionString() string {
	if o.URL != "" {
		return o.URL
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(o.User, o.Password),
		Host:   net.JoinHostPort(o.Host, strconv.Itoa(o.Port)),
		Path:   "/" + o.Database,
	}
	if o.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{o.SSLMode}}.Encode()
	}
	return u.String()
}

// NewPostgresStore connects to PostgreSQL and applies the schema migrations
func NewPostgresStore(ctx context.Context, opts PostgresOptions) (*PostgresStore, error) {
	connStr := opts.ConnectionString()

	if err := migrateUp(connStr); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// migrateUp applies every pending migration from the embedded set
func migrateUp(connStr string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(connStr))
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("Failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// migrateURL swaps the scheme for the one the pgx migration driver registers
func migrateURL(connStr string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(connStr, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return connStr
}

// Get implements BlobStore
func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM catalog_blobs WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Put implements BlobStore
func (p *PostgresStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO catalog_blobs (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		key, data)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// TryLock implements Locker with a session level advisory lock. The
// connection holding the lock stays checked out of the pool until unlock.
func (p *PostgresStore) TryLock(ctx context.Context, name string) (func(), bool, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire connection: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, name).Scan(&locked); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("failed to take advisory lock %s: %w", name, err)
	}
	if !locked {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		defer conn.Release()
		if _, err := conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock(hashtext($1))`, name); err != nil {
			slog.Warn("Failed to release advisory lock", "lock", name, "error", err)
		}
	}
	return unlock, true, nil
}

// Close implements BlobStore
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
