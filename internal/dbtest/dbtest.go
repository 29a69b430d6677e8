// Package dbtest opens migrated in-memory staging databases for tests
package dbtest

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/db"
	"github.com/Ramsey-B/clover/pkg/database"
)

// NopLogger discards log output
func NopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// NewSQLite returns a fresh in-memory database with the staging schema applied.
// It is closed when the test ends.
func NewSQLite(t *testing.T) database.DB {
	t.Helper()

	logger := NopLogger()
	conn, err := database.Open(context.Background(), database.ConnectionConfig{
		Driver: "sqlite",
		Path:   ":memory:",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{Embedded: db.Migrations})
	require.NoError(t, migrations.Migrate(conn))

	return conn
}
