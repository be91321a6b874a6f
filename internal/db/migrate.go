package db

import (
	"fmt"
	"net/http"

	migrate "github.com/rubenv/sql-migrate"

	"github.com/crowdtask/platform-backend/db/migrations"
	"github.com/crowdtask/platform-backend/internal/utils"
)

// Migrate runs the embedded SQL migrations against the given database, up or down, at most count steps (0 = all).
func Migrate(dbURL string, dir migrate.MigrationDirection, count int) (int, error) {
	dbConnectionPool, err := OpenDBConnectionPool(dbURL)
	if err != nil {
		return 0, fmt.Errorf("database URL '%s': %w", utils.TruncateString(dbURL, len(dbURL)/4), err)
	}
	defer dbConnectionPool.Close()

	ms := migrate.MigrationSet{}
	m := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrations.FS)}
	return ms.ExecMax(dbConnectionPool.SqlDB(), dbConnectionPool.DriverName(), m, dir, count)
}
