//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/database"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "defiwatch_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/defiwatch_test?sslmode=disable", host, port.Port())
}

func TestMigratorIntegration(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	db, err := database.OpenSQL(ctx, dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("Up creates the schema", func(t *testing.T) {
		require.NoError(t, database.MigrateUp(ctx, dsn))

		assertTableExists(t, db, "alert_state")
		assertTableExists(t, db, "cache_entries")
		assert.Contains(t, getTableIndexes(t, db, "cache_entries"), "idx_cache_entries_expires_at")
	})

	t.Run("Up is idempotent", func(t *testing.T) {
		require.NoError(t, database.MigrateUp(ctx, dsn))
	})

	t.Run("Version", func(t *testing.T) {
		m, err := database.OpenMigrator(ctx, dsn)
		require.NoError(t, err)
		defer func() { _ = m.Close() }()

		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.False(t, dirty, "migration should not be dirty")
		assert.Equal(t, uint(2), version)
	})

	t.Run("alert_state defaults to an empty document", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO alert_state (installation_id) VALUES ($1)`, "fresh")
		require.NoError(t, err)

		var state string
		require.NoError(t, db.QueryRow(`SELECT state::text FROM alert_state WHERE installation_id = $1`, "fresh").Scan(&state))
		assert.JSONEq(t, `{"alerts": [], "alertRules": []}`, state)
	})

	t.Run("Down rolls back one step", func(t *testing.T) {
		m, err := database.OpenMigrator(ctx, dsn)
		require.NoError(t, err)
		defer func() { _ = m.Close() }()

		require.NoError(t, m.Down())

		version, _, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)
		assertTableMissing(t, db, "cache_entries")
		assertTableExists(t, db, "alert_state")
	})
}

func tableExists(t *testing.T, db *sql.DB, tableName string) bool {
	t.Helper()

	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func assertTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()
	assert.True(t, tableExists(t, db, tableName), "table %s should exist", tableName)
}

func assertTableMissing(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()
	assert.False(t, tableExists(t, db, tableName), "table %s should not exist", tableName)
}

func getTableIndexes(t *testing.T, db *sql.DB, tableName string) []string {
	t.Helper()

	rows, err := db.Query(`
		SELECT indexname
		FROM pg_indexes
		WHERE schemaname = 'public'
		AND tablename = $1
	`, tableName)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var indexes []string
	for rows.Next() {
		var idx string
		require.NoError(t, rows.Scan(&idx))
		indexes = append(indexes, idx)
	}

	return indexes
}
