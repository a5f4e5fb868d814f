package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tclog "github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/stacklok/toolhive-catalog/internal/storage"
)

type nopLogger struct{}

func (*nopLogger) Printf(_ string, _ ...any) {}

var _ tclog.Logger = (*nopLogger)(nil)

// setupPostgres starts a disposable PostgreSQL container and returns its URL
func setupPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	tc.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("catalog"),
		postgres.WithUsername("catalog"),
		postgres.WithPassword("catalog"),
		postgres.BasicWaitStrategies(),
		tc.WithLogger(&nopLogger{}),
	)
	tc.CleanupContainer(t, container)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func TestPostgresStore(t *testing.T) {
	t.Parallel()

	connStr := setupPostgres(t)
	ctx := context.Background()

	store, err := storage.NewPostgresStore(ctx, storage.PostgresOptions{URL: connStr})
	require.NoError(t, err)
	storeContract(t, store)

	// Reopening applies no migrations twice and sees the stored rows
	reopened, err := storage.NewPostgresStore(ctx, storage.PostgresOptions{URL: connStr, MaxConns: 2})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	data, err := reopened.Get(ctx, "status/skills.json")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestPostgresStore_TryLock(t *testing.T) {
	t.Parallel()

	connStr := setupPostgres(t)
	ctx := context.Background()

	first, err := storage.NewPostgresStore(ctx, storage.PostgresOptions{URL: connStr})
	require.NoError(t, err)
	defer func() { _ = first.Close() }()
	second, err := storage.NewPostgresStore(ctx, storage.PostgresOptions{URL: connStr})
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	unlock, ok, err := first.TryLock(ctx, "pipeline-skills")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = second.TryLock(ctx, "pipeline-skills")
	require.NoError(t, err)
	assert.False(t, ok)

	unlock()

	unlock, ok, err = second.TryLock(ctx, "pipeline-skills")
	require.NoError(t, err)
	require.True(t, ok)
	unlock()
}
