package cmd

import (
	"time"

	"ticket-hunter/pkg/health"
	"ticket-hunter/pkg/logger"

	"github.com/spf13/cobra"
)

func newHealthCheckCommand(opts *rootOptions) *cobra.Command {
	var (
		headless   bool
		saveReport bool
		reportPath string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Scrape a known-good page on every marketplace and report",
		Long:  `Runs one unretried scrape per marketplace, prints a summary, saves a JSON report and exits 1 unless every marketplace returned a price.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			if cmd.Flags().Changed("headless") {
				a.settings.Scraping.Headless = headless
			}
			if timeout > 0 {
				a.settings.Scraping.TimeoutSeconds = int(timeout.Seconds())
			}

			a.log.Info("Starting scraper health checks")
			report := health.NewChecker(a.orchestrator(), nil, a.log).Run(cmd.Context())
			report.Print(cmd.OutOrStdout())

			if saveReport {
				if err := report.Save(reportPath); err != nil {
					a.log.Error("Failed to save health check report", logger.Error(err))
				} else {
					a.log.Info("Health check report saved", logger.String("path", reportPath))
				}
			}

			if !report.AllPassed() {
				return exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	cmd.Flags().BoolVar(&saveReport, "save-report", true, "save the JSON report")
	cmd.Flags().StringVar(&reportPath, "report", health.DefaultReportPath, "report path")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "navigation timeout (defaults to scraping.timeout_seconds)")
	return cmd
}
