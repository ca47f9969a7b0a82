// Package cmd implements the ticket-hunter command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"ticket-hunter/pkg/config"

	"github.com/spf13/cobra"
)

// exitError carries a process exit code without an error message of its
// own.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

type rootOptions struct {
	settingsPath string
	alertsPath   string
	debug        bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "ticket-hunter",
		Short:         "Watch ticket marketplaces and email when prices drop",
		Long:          `Scrapes Ticketmaster, StubHub and Viagogo event pages on a schedule and sends an email when a listing drops below its target price.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.settingsPath, "settings", config.DefaultSettingsPath, "settings file")
	root.PersistentFlags().StringVar(&opts.alertsPath, "alerts", config.DefaultAlertsPath, "alerts file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newRunCommand(opts),
		newCheckCommand(opts),
		newHealthCheckCommand(opts),
		newServeCommand(opts),
		newSyncCommand(opts),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	return run(context.Background(), os.Args[1:], os.Stderr)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	if errors.Is(err, config.ErrConfigurationMissing) {
		fmt.Fprintf(stderr, "Error: %v\nPlease create %s and %s\n", err, config.DefaultSettingsPath, config.DefaultAlertsPath)
		return 1
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
