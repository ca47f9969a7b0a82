package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Sync alerts and run a single pass",
		Long:  `Runs one pass over all active alerts without the scheduler and prints the tally. Exits 1 when any alert failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := a.syncAlerts(ctx, opts, s); err != nil {
				return err
			}
			m, err := a.manager(ctx, s)
			if err != nil {
				return err
			}

			stats, err := m.ProcessAll(ctx)
			if err != nil {
				return err
			}

			out, _ := json.Marshal(stats)
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if stats.Failed > 0 {
				return exitError{code: 1}
			}
			return nil
		},
	}
}
