// Package dbtest opens a migrated Postgres database for data-layer tests.
// Tests are skipped when DATABASE_TEST_DSN is not set.
package dbtest

import (
	"net/http"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/db/migrations"
)

const dsnEnvVar = "DATABASE_TEST_DSN"

// Open returns a migrated test database connection. The caller owns the
// returned connection and must Close it.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv(dsnEnvVar)
	if dsn == "" {
		t.Skipf("skipping DB test: %s is not set", dsnEnvVar)
	}

	conn, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err)

	ms := migrate.MigrationSet{}
	m := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrations.FS)}
	_, err = ms.ExecMax(conn.DB, "postgres", m, migrate.Up, 0)
	require.NoError(t, err)

	truncateAll(t, conn)
	return conn
}

func truncateAll(t *testing.T, conn *sqlx.DB) {
	t.Helper()
	_, err := conn.Exec(`TRUNCATE transactions, wallets, workers, disputes, submissions, assignments, tasks CASCADE`)
	require.NoError(t, err)
}
