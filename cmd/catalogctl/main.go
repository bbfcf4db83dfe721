// cmd/catalogctl/main.go
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const appName = "catalogctl"

// errIssues makes validate exit non-zero without printing a second error.
var errIssues = errors.New("catalog has integrity issues")

func main() {
	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, errIssues) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

type globalFlags struct {
	file     string
	offline  bool
	logLevel string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Manage the contract type and phase catalog",
		Long: `catalogctl seeds and inspects the procurement catalog: contract types,
amount ranges and phase templates.

By default it works against the database configured through the usual
environment variables. With --offline it loads the YAML catalog (--file, or
the built-in LOSNCP catalog) into memory instead, which checks a catalog
file without touching any database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(flags.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", flags.logLevel, err)
			}
			logrus.SetLevel(level)
			logrus.SetOutput(os.Stderr)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.file, "file", "f", "", "YAML catalog file (defaults to the built-in LOSNCP catalog)")
	cmd.PersistentFlags().BoolVar(&flags.offline, "offline", false, "Load the catalog into memory instead of the database")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		seedCmd(flags),
		validateCmd(flags),
		resolveCmd(flags),
		sequenceCmd(flags),
		tokenCmd(),
	)
	return cmd
}
