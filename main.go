package main

import (
	"github.com/joho/godotenv"

	"github.com/crowdtask/platform-backend/cmd"
	"github.com/crowdtask/platform-backend/internal/logger"
)

// Version is the official version of this application.
const Version = "1.0.0"

// GitCommit is populated at build time by
// go build -ldflags "-X main.GitCommit=$GIT_COMMIT"
var GitCommit string

func main() {
	// Load environment variables from a local .env file, if present.
	if err := godotenv.Load(); err != nil {
		logger.Debugf("no .env file loaded: %v", err)
	}

	rootCmd := cmd.SetupCLI(Version, GitCommit)
	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Error executing command: %s", err.Error())
	}
}
