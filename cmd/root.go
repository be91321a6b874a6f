package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdUtils "github.com/crowdtask/platform-backend/cmd/utils"
	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/monitor"
)

// globalOptions is a variable that holds the global CLI options that can be
// applied to any command or subcommand.
var globalOptions cmdUtils.GlobalOptionsType

func rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "crowdtask",
		Short:   "Crowdtask Platform",
		Long:    "The Crowdtask Platform runs crowdsourced microtask batches through assignment, quality control, and payment settlement.",
		Version: globalOptions.Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if err := cmdUtils.BindFlags(cmd); err != nil {
				logger.Fatalf("Error binding config options: %s", err.Error())
			}

			globalOptions.LogLevel = viper.GetString("log-level")
			globalOptions.SentryDSN = viper.GetString("sentry-dsn")
			globalOptions.Environment = viper.GetString("environment")
			globalOptions.DatabaseURL = viper.GetString("database-url")

			level, err := logger.ParseLevel(globalOptions.LogLevel)
			if err != nil {
				logger.Fatalf("Error parsing log level: %s", err.Error())
			}
			logger.SetLevel(level)

			logger.Info("Version: ", globalOptions.Version)
			logger.Info("GitCommit: ", globalOptions.GitCommit)
		},
		Run: func(cmd *cobra.Command, args []string) {
			err := cmd.Help()
			if err != nil {
				logger.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	rootCmd.PersistentFlags().String("log-level", "TRACE", `The log level used in this project. Options: "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", or "PANIC".`)
	rootCmd.PersistentFlags().String("sentry-dsn", "", "The DSN (client key) of the Sentry project. If not provided, Sentry will not be used.")
	rootCmd.PersistentFlags().String("environment", "development", `The environment where the application is running. Example: "development", "staging", "production".`)
	rootCmd.PersistentFlags().String("database-url", "postgres://localhost:5432/crowdtask?sslmode=disable", "Postgres DB URL")

	return rootCmd
}

// SetupCLI sets up the CLI and returns the root command with the subcommands
// attached.
func SetupCLI(version, gitCommit string) *cobra.Command {
	globalOptions.Version = version
	globalOptions.GitCommit = gitCommit
	rootCmd := rootCmd()

	// Add subcommands
	rootCmd.AddCommand((&ServeCommand{}).Command(&ServerService{}, &monitor.MonitorService{}))
	rootCmd.AddCommand((&DatabaseCommand{}).Command())
	rootCmd.AddCommand((&ConsumersCommand{}).Command())
	rootCmd.AddCommand((&SchedulerCommand{}).Command())

	return rootCmd
}
