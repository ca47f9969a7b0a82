package cmd

import (
	"github.com/spf13/cobra"
)

func newSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Create or update alerts in the database from the alerts file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			return a.syncAlerts(cmd.Context(), opts, s)
		},
	}
}
