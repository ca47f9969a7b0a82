package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ticket-hunter/pkg/api"
	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/store"

	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var docsDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only reporting API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			srv := a.httpServer(s, api.Options{DocsDir: docsDir})
			go a.listen(srv)
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&docsDir, "docs", "./docs", "directory holding api.yaml")
	return cmd
}

func (a *app) httpServer(s *store.Store, opts api.Options) *http.Server {
	opts.Metrics = a.metrics.Handler()
	return &http.Server{
		Addr:              a.settings.Server.Addr,
		Handler:           api.NewServer(s, opts, a.log).Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (a *app) listen(srv *http.Server) {
	port := srv.Addr[strings.LastIndex(srv.Addr, ":")+1:]
	if ip := GetOutboundIP(); ip != nil {
		a.log.Info("Local network URL", logger.String("url", fmt.Sprintf("http://%s:%s", ip, port)))
	}
	a.log.Info("Reporting API listening",
		logger.String("url", "http://localhost:"+port),
		logger.String("docs", "http://localhost:"+port+"/"),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.Error("HTTP server failed", logger.Error(err))
	}
}

// GetOutboundIP returns the address other machines on the LAN can reach
// this host on, or nil.
func GetOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP
				}
			}
		}
		return nil
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).IP
}
