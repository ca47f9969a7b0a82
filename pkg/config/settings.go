// Package config loads application settings and alert definitions.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"ticket-hunter/pkg/extract"
	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/notify"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultSettingsPath = "config/settings.yaml"
	DefaultAlertsPath   = "config/alerts.yaml"

	EnvPrefix = "TICKET_HUNTER"

	EngineChrome = "chrome"
	EngineStatic = "static"
)

type ScrapingConfig struct {
	Headless        bool   `mapstructure:"headless"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	UserAgent       string `mapstructure:"user_agent"`
	IntervalMinutes int    `mapstructure:"interval_minutes"`
	JitterMinutes   int    `mapstructure:"jitter_minutes"`
	Engine          string `mapstructure:"engine"`
	PricePolicy     string `mapstructure:"price_policy"`
	DiagnosticsDir  string `mapstructure:"diagnostics_dir"`
}

func (c ScrapingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c ScrapingConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c ScrapingConfig) Jitter() time.Duration {
	return time.Duration(c.JitterMinutes) * time.Minute
}

func (c ScrapingConfig) Policy() extract.Policy {
	return extract.Policy(c.PricePolicy)
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type Settings struct {
	Scraping ScrapingConfig    `mapstructure:"scraping"`
	Email    notify.SMTPConfig `mapstructure:"email"`
	Database DatabaseConfig    `mapstructure:"database"`
	Logging  logger.Config     `mapstructure:"logging"`
	Server   ServerConfig      `mapstructure:"server"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraping", map[string]any{
		"headless":         true,
		"timeout_seconds":  30,
		"user_agent":       "",
		"interval_minutes": 15,
		"jitter_minutes":   2,
		"engine":           EngineChrome,
		"price_policy":     string(extract.FirstMatch),
		"diagnostics_dir":  "data/errors",
	})
	v.SetDefault("email", map[string]any{
		"smtp_host":       "",
		"smtp_port":       587,
		"sender_email":    "",
		"sender_password": "",
		"recipient_email": "",
	})
	v.SetDefault("database.path", "data/tickets.db")
	v.SetDefault("logging", map[string]any{
		"level":       "info",
		"file":        "data/ticket_scraper.log",
		"development": false,
	})
	v.SetDefault("server.addr", ":8080")
}

// LoadEnvFile loads .env from the working directory if there is one.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadSettings reads the YAML settings file. Any key can be overridden by
// an environment variable such as TICKET_HUNTER_EMAIL_SENDER_PASSWORD.
func LoadSettings(path string) (*Settings, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: settings file %s", ErrConfigurationMissing, path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks everything except the email block, which only commands
// that notify need.
func (s *Settings) Validate() error {
	sc := s.Scraping
	switch {
	case sc.TimeoutSeconds <= 0:
		return &ValidationError{Field: "scraping.timeout_seconds", Value: sc.TimeoutSeconds, Reason: "must be positive"}
	case sc.IntervalMinutes <= 0:
		return &ValidationError{Field: "scraping.interval_minutes", Value: sc.IntervalMinutes, Reason: "must be positive"}
	case sc.JitterMinutes < 0:
		return &ValidationError{Field: "scraping.jitter_minutes", Value: sc.JitterMinutes, Reason: "must not be negative"}
	case sc.Engine != EngineChrome && sc.Engine != EngineStatic:
		return &ValidationError{Field: "scraping.engine", Value: sc.Engine, Reason: "must be chrome or static"}
	case sc.Policy() != extract.FirstMatch && sc.Policy() != extract.LowestMatch:
		return &ValidationError{Field: "scraping.price_policy", Value: sc.PricePolicy, Reason: "must be first or lowest"}
	case s.Database.Path == "":
		return &ValidationError{Field: "database.path", Value: s.Database.Path, Reason: "is required"}
	}
	return nil
}

func (s *Settings) ValidateEmail() error {
	e := s.Email
	switch {
	case e.Host == "":
		return &ValidationError{Field: "email.smtp_host", Value: e.Host, Reason: "is required"}
	case e.Port <= 0:
		return &ValidationError{Field: "email.smtp_port", Value: e.Port, Reason: "must be positive"}
	case e.SenderEmail == "":
		return &ValidationError{Field: "email.sender_email", Value: e.SenderEmail, Reason: "is required"}
	case e.RecipientEmail == "":
		return &ValidationError{Field: "email.recipient_email", Value: e.RecipientEmail, Reason: "is required"}
	}
	return nil
}

// Defaults returns the settings used when no settings file exists.
func Defaults() *Settings {
	v := viper.New()
	setDefaults(v)
	var s Settings
	_ = v.Unmarshal(&s)
	return &s
}
