// Package utils holds the CLI plumbing shared by every subcommand: the
// global options struct and the viper <-> cobra flag binding.
package utils

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variables that map to CLI flags,
// e.g. --database-url becomes CROWDTASK_DATABASE_URL.
const EnvPrefix = "CROWDTASK"

// GlobalOptionsType holds the global CLI options that apply to every
// subcommand.
type GlobalOptionsType struct {
	Version     string
	GitCommit   string
	LogLevel    string
	SentryDSN   string
	Environment string
	DatabaseURL string
}

// BindFlags wires the command's flags into viper so each flag can also be set
// through a CROWDTASK_* environment variable.
func BindFlags(cmd *cobra.Command) error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags for %s: %w", cmd.Name(), err)
	}

	// Propagate env-provided values back into cobra so Required flag checks
	// and later flag lookups see them.
	var flagErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed || !viper.IsSet(f.Name) {
			return
		}
		if err := cmd.Flags().Set(f.Name, viper.GetString(f.Name)); err != nil {
			flagErr = fmt.Errorf("setting flag %s from environment: %w", f.Name, err)
		}
	})
	return flagErr
}
