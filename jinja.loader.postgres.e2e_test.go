//go:build integration

package jinja

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// setupPostgresContainer starts an ephemeral PostgreSQL container and seeds
// a template table.
func setupPostgresContainer(t *testing.T) (string, *sql.DB, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15",
		postgres.WithDatabase("jinja_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	db, err := sql.Open(postgresDriverName, dsn)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `
		CREATE TABLE jinja_templates (
			name   TEXT PRIMARY KEY,
			source TEXT NOT NULL
		)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO jinja_templates (name, source) VALUES
			('greet', 'Hello {{ name | title }}!'),
			('list', '{% for x in items %}{{ x }}{% if not loop.last %}, {% endif %}{% endfor %}')`)
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	}
	return dsn, db, cleanup
}

func TestPostgresLoader_E2E(t *testing.T) {
	dsn, db, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	loader, err := NewPostgresLoader(PostgresLoaderConfig{DSN: dsn, QueryTimeout: 30 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	t.Run("Load", func(t *testing.T) {
		src, err := loader.Load(ctx, "greet")
		require.NoError(t, err)
		assert.Equal(t, "Hello {{ name | title }}!", src)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := loader.Load(ctx, "missing")
		assert.ErrorContains(t, err, ErrMsgTemplateNotFound)
	})

	t.Run("List", func(t *testing.T) {
		names, err := loader.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"greet", "list"}, names)
	})

	t.Run("Engine", func(t *testing.T) {
		engine := newTestEngine(t, WithLoader(loader))

		out, err := engine.RenderTemplate(ctx, "greet", map[string]any{"name": "ada"})
		require.NoError(t, err)
		assert.Equal(t, "Hello Ada!", out)

		out, err = engine.RenderTemplate(ctx, "list", map[string]any{"items": []any{1, 2, 3}})
		require.NoError(t, err)
		assert.Equal(t, "1, 2, 3", out)

		_, err = db.ExecContext(ctx, `UPDATE jinja_templates SET source = 'Hi {{ name }}' WHERE name = 'greet'`)
		require.NoError(t, err)
		engine.Invalidate("greet")

		out, err = engine.RenderTemplate(ctx, "greet", map[string]any{"name": "ada"})
		require.NoError(t, err)
		assert.Equal(t, "Hi ada", out)
	})

	t.Run("Close", func(t *testing.T) {
		require.NoError(t, loader.Close())
		assert.Error(t, loader.Close())

		_, err := loader.Load(ctx, "greet")
		assert.ErrorContains(t, err, ErrMsgLoaderClosed)
	})
}
