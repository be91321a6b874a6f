package cmd

import (
	"net/http"
	"strconv"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/crowdtask/platform-backend/db/migrations"
	"github.com/crowdtask/platform-backend/internal/db"
	"github.com/crowdtask/platform-backend/internal/logger"
)

// DatabaseCommand applies the SQL migrations embedded in db/migrations.
type DatabaseCommand struct{}

func (c *DatabaseCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database migration helpers",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Root().PersistentPreRun(cmd, args)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				logger.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				logger.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}
	migrateCmd.AddCommand(c.migrateDirectionCommand("up", migrate.Up))
	migrateCmd.AddCommand(c.migrateDirectionCommand("down", migrate.Down))
	cmd.AddCommand(migrateCmd)

	return cmd
}

func (c *DatabaseCommand) migrateDirectionCommand(use string, direction migrate.MigrationDirection) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [count]",
		Short: "Migrates the database " + use,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			count := 0
			if len(args) > 0 {
				var err error
				count, err = strconv.Atoi(args[0])
				if err != nil {
					logger.Ctx(ctx).Fatalf("invalid migration count %q: %v", args[0], err)
				}
			}

			if err := c.runMigration(direction, count); err != nil {
				logger.Ctx(ctx).Fatalf("error migrating database: %v", err)
			}
		},
	}
}

func (c *DatabaseCommand) runMigration(direction migrate.MigrationDirection, count int) error {
	dbConnectionPool, err := db.OpenDBConnectionPool(globalOptions.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConnectionPool.Close()

	source := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrations.FS)}
	ms := migrate.MigrationSet{}
	applied, err := ms.ExecMax(dbConnectionPool.SqlDB(), "postgres", source, direction, count)
	if err != nil {
		return err
	}

	logger.Infof("Successfully applied %d migrations.", applied)
	return nil
}
