package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticket-hunter/pkg/api"
	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/scheduler"

	"github.com/spf13/cobra"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var noServer bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sync alerts and check them on a schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.log.Info("Starting ticket price scraper")

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

			sched := scheduler.New(m, scheduler.Config{
				Interval: a.settings.Scraping.Interval(),
				Jitter:   a.settings.Scraping.Jitter(),
			}, a.log)

			var srv *http.Server
			if !noServer && a.settings.Server.Addr != "" {
				srv = a.httpServer(s, api.Options{Status: func() any { return sched.Status() }})
				go a.listen(srv)
			}

			if err := sched.Start(ctx); err != nil {
				return err
			}
			a.log.Info("Ticket price scraper is now running",
				logger.Duration("interval", a.settings.Scraping.Interval()),
			)

			<-ctx.Done()
			a.log.Info("Shutdown signal received, stopping")

			if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
				a.log.Warn("Stopping scheduler failed", logger.Error(err))
			}
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.log.Warn("HTTP server shutdown failed", logger.Error(err))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noServer, "no-server", false, "do not serve the reporting API")
	return cmd
}
