package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ticket-hunter/pkg/alerts"
	"ticket-hunter/pkg/config"
	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/metrics"
	"ticket-hunter/pkg/notify"
	"ticket-hunter/pkg/render"
	"ticket-hunter/pkg/scrapers"
	"ticket-hunter/pkg/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds what every command shares: settings, the logger and metrics.
type app struct {
	settings *config.Settings
	log      logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// newApp loads settings and builds the logger. With optionalSettings a
// missing settings file falls back to defaults.
func newApp(opts *rootOptions, optionalSettings bool) (*app, error) {
	config.LoadEnvFile()

	settings, err := config.LoadSettings(opts.settingsPath)
	if errors.Is(err, config.ErrConfigurationMissing) && optionalSettings {
		settings, err = config.Defaults(), nil
	}
	if err != nil {
		return nil, err
	}
	if opts.debug {
		settings.Logging.Level = "debug"
		settings.Logging.Development = true
	}

	if f := settings.Logging.File; f != "" {
		if err := os.MkdirAll(filepath.Dir(f), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	log, err := logger.New(settings.Logging)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &app{
		settings: settings,
		log:      log,
		registry: reg,
		metrics:  metrics.New(reg),
	}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

func (a *app) opener() render.Opener {
	sc := a.settings.Scraping
	opts := render.Options{
		Headless:  sc.Headless,
		UserAgent: sc.UserAgent,
		Timeout:   sc.Timeout(),
	}
	if sc.Engine == config.EngineStatic {
		return render.NewStatic(opts, a.log)
	}
	return render.NewChrome(opts, a.log)
}

func (a *app) orchestrator() *scrapers.Orchestrator {
	sc := a.settings.Scraping
	return scrapers.NewOrchestrator(
		a.opener(),
		scrapers.NewScraper(sc.Timeout(), sc.Policy(), a.log),
		scrapers.DefaultRetryPolicy(),
		scrapers.NewDiagnostics(sc.DiagnosticsDir, a.log),
		a.metrics,
		a.log,
	)
}

func (a *app) openStore() (*store.Store, error) {
	path := a.settings.Database.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	a.log.Info("Initializing database", logger.String("path", path))
	return store.Open(path)
}

// syncAlerts loads the alerts file into the store.
func (a *app) syncAlerts(ctx context.Context, opts *rootOptions, s *store.Store) error {
	cfgs, err := config.LoadAlerts(opts.alertsPath, a.log)
	if err != nil {
		return err
	}
	return config.Sync(ctx, cfgs, s, a.log)
}

func (a *app) notifier(ctx context.Context) (*notify.EmailNotifier, error) {
	if err := a.settings.ValidateEmail(); err != nil {
		return nil, err
	}
	n, err := notify.NewEmailNotifier(a.settings.Email, a.log)
	if err != nil {
		return nil, err
	}
	if n.TestConnection(ctx) {
		a.log.Info("Email notifier configured successfully")
	} else {
		a.log.Warn("Email notifier test failed, notifications may not work")
	}
	return n, nil
}

// manager wires the full alert pipeline against the store.
func (a *app) manager(ctx context.Context, s *store.Store) (*alerts.Manager, error) {
	n, err := a.notifier(ctx)
	if err != nil {
		return nil, err
	}
	return alerts.NewManager(alerts.NewSQLStore(s), a.orchestrator(), n, a.metrics, a.log), nil
}
