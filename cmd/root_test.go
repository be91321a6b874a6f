package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/internal/monitor"
)

func Test_SetupCLI(t *testing.T) {
	rootCommand := SetupCLI("x.y.z", "1234567890abcdef")

	assert.Equal(t, "crowdtask", rootCommand.Use)
	assert.Equal(t, "x.y.z", globalOptions.Version)
	assert.Equal(t, "1234567890abcdef", globalOptions.GitCommit)

	var subcommands []string
	for _, subcommand := range rootCommand.Commands() {
		subcommands = append(subcommands, subcommand.Name())
	}
	assert.Contains(t, subcommands, "serve")
	assert.Contains(t, subcommands, "db")
	assert.Contains(t, subcommands, "consumers")
	assert.Contains(t, subcommands, "scheduler")
}

func Test_rootCmd_defaults(t *testing.T) {
	rootCommand := rootCmd()

	logLevel, err := rootCommand.PersistentFlags().GetString("log-level")
	require.NoError(t, err)
	assert.Equal(t, "TRACE", logLevel)

	environment, err := rootCommand.PersistentFlags().GetString("environment")
	require.NoError(t, err)
	assert.Equal(t, "development", environment)
}

func Test_subcommandFlagDefaults(t *testing.T) {
	serveCommand := (&ServeCommand{}).Command(&ServerService{}, &monitor.MonitorService{})
	serveLanguage, err := serveCommand.Flags().GetString("transcribe-language")
	require.NoError(t, err)
	assert.Equal(t, "es-ES", serveLanguage)

	schedulerCommand := (&SchedulerCommand{}).Command()
	schedulerLanguage, err := schedulerCommand.Flags().GetString("transcribe-language")
	require.NoError(t, err)
	assert.Equal(t, "es-ES", schedulerLanguage)

	consumersCommand := (&ConsumersCommand{}).Command()
	minConfidence, err := consumersCommand.Flags().GetFloat64("rekognition-min-confidence")
	require.NoError(t, err)
	assert.Equal(t, float64(90), minConfidence)
}
