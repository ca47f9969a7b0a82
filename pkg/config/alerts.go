package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/models"
	"ticket-hunter/pkg/scrapers"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// AlertConfig is one entry of the alerts file. Active defaults to true.
type AlertConfig struct {
	Name        string          `yaml:"name"`
	Source      string          `yaml:"source"`
	URL         string          `yaml:"url"`
	TargetPrice decimal.Decimal `yaml:"target_price"`
	Active      *bool           `yaml:"active"`
}

func (a AlertConfig) IsActive() bool {
	return a.Active == nil || *a.Active
}

func (a AlertConfig) Alert() models.Alert {
	return models.Alert{
		Name:        a.Name,
		Source:      strings.ToLower(strings.TrimSpace(a.Source)),
		URL:         a.URL,
		TargetPrice: a.TargetPrice,
		Active:      a.IsActive(),
	}
}

type alertsFile struct {
	Alerts []AlertConfig `yaml:"alerts"`
}

// LoadAlerts reads the alerts file. Entries without a name are skipped with
// a warning; any other invalid entry fails the whole load.
func LoadAlerts(path string, log logger.Logger) ([]AlertConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: alerts file %s", ErrConfigurationMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read alerts %s: %w", path, err)
	}

	var f alertsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse alerts %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Alerts))
	out := make([]AlertConfig, 0, len(f.Alerts))
	for i, a := range f.Alerts {
		if strings.TrimSpace(a.Name) == "" {
			log.Warn("Alert missing name, skipping", logger.Int("index", i), logger.String("url", a.URL))
			continue
		}
		if err := validateAlert(a); err != nil {
			return nil, err
		}
		if seen[a.Name] {
			return nil, &ValidationError{Field: "alerts.name", Value: a.Name, Reason: "duplicate name"}
		}
		seen[a.Name] = true
		out = append(out, a)
	}

	log.Info("Loaded alerts", logger.Int("count", len(out)), logger.String("path", path))
	return out, nil
}

func validateAlert(a AlertConfig) error {
	if _, err := scrapers.Lookup(a.Source); err != nil {
		return &ValidationError{Field: "alerts[" + a.Name + "].source", Value: a.Source, Reason: "unknown source"}
	}
	if a.URL == "" {
		return &ValidationError{Field: "alerts[" + a.Name + "].url", Value: a.URL, Reason: "is required"}
	}
	if !a.TargetPrice.IsPositive() {
		return &ValidationError{Field: "alerts[" + a.Name + "].target_price", Value: a.TargetPrice, Reason: "must be greater than zero"}
	}
	return nil
}

// AlertUpserter creates or updates an alert by name.
type AlertUpserter interface {
	UpsertAlert(ctx context.Context, a models.Alert) (created bool, err error)
}

// Sync writes the configured alerts into storage, matching on name.
// Alerts that disappeared from the file are left as they are.
func Sync(ctx context.Context, alerts []AlertConfig, dst AlertUpserter, log logger.Logger) error {
	log.Info("Syncing alerts to database", logger.Int("count", len(alerts)))
	for _, a := range alerts {
		created, err := dst.UpsertAlert(ctx, a.Alert())
		if err != nil {
			return fmt.Errorf("sync alert %q: %w", a.Name, err)
		}
		if created {
			log.Info("Created new alert", logger.String("alert", a.Name))
		} else {
			log.Info("Updated alert", logger.String("alert", a.Name))
		}
	}
	log.Info("Alert sync completed")
	return nil
}
