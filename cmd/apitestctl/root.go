package main

import (
	"github.com/spf13/cobra"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	fixturesDir string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "apitestctl",
		Short:         "Run and schedule API test suites described as YAML fixtures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.fixturesDir, "fixtures", "./fixtures", "Directory of suite/environment/schedule YAML fixtures")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newScheduleCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
