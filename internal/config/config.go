// Package config defines service configuration and its loading.
//
// Values are layered: defaults from New, then an optional YAML file named by
// LICHHEN_CONFIG, then LICHHEN_* environment variables. Nested keys use a
// double underscore in the environment, e.g. LICHHEN_STORE__DRIVER.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/robfig/cron/v3"

	repository "github.com/okian/lichhen/internal/adapters/repository"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Timezone is the IANA zone used to interpret relative dates.
	Timezone string `koanf:"timezone"`

	Store    StoreConfig    `koanf:"store"`
	Reminder ReminderConfig `koanf:"reminder"`
	SMTP     SMTPConfig     `koanf:"smtp"`
	HTTP     HTTPConfig     `koanf:"http"`
}

// StoreConfig selects the event store backend.
type StoreConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// ReminderConfig tunes reminder scanning and delivery.
type ReminderConfig struct {
	// DefaultMinutes applies to events stored without an explicit offset.
	// Zero disables reminders for such events.
	DefaultMinutes int `koanf:"default_minutes"`

	// ScanSchedule is a cron spec, descriptors such as "@every 1m" included.
	ScanSchedule string `koanf:"scan_schedule"`

	QueueSize   int `koanf:"queue_size"`
	WorkerCount int `koanf:"worker_count"`
	DedupeSize  int `koanf:"dedupe_size"`
}

// SMTPConfig configures mail delivery. An empty Host means reminders are
// only logged.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	To       string `koanf:"to"`
}

// HTTPConfig tunes the HTTP surface.
type HTTPConfig struct {
	// ParseRate is the sustained requests per second allowed on parse
	// endpoints; ParseBurst the bucket size.
	ParseRate     float64 `koanf:"parse_rate"`
	ParseBurst    int     `koanf:"parse_burst"`
	MaxTextLength int     `koanf:"max_text_length"`

	// TrustForwarded keys parse rate limits on X-Forwarded-For. Set it
	// only behind a proxy that overwrites that header.
	TrustForwarded bool `koanf:"trust_forwarded"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",
		Timezone:  "Asia/Ho_Chi_Minh",
		Store: StoreConfig{
			Driver: repository.DriverMemory,
		},
		Reminder: ReminderConfig{
			DefaultMinutes: 15,
			ScanSchedule:   "@every 1m",
			QueueSize:      1_000,
			WorkerCount:    runtime.NumCPU(),
			DedupeSize:     10_000,
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		HTTP: HTTPConfig{
			ParseRate:     20,
			ParseBurst:    40,
			MaxTextLength: 1_000,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	switch c.Store.Driver {
	case repository.DriverMemory:
	case repository.DriverSQLite, repository.DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: store.dsn is required for driver %s", ErrInvalidConfig, c.Store.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	if _, err := cron.ParseStandard(c.Reminder.ScanSchedule); err != nil {
		return fmt.Errorf("%w: reminder.scan_schedule: %w", ErrInvalidConfig, err)
	}
	if c.Reminder.DefaultMinutes < 0 {
		return fmt.Errorf("%w: reminder.default_minutes must not be negative", ErrInvalidConfig)
	}
	if c.Reminder.QueueSize < 1 || c.Reminder.WorkerCount < 1 || c.Reminder.DedupeSize < 1 {
		return fmt.Errorf("%w: reminder queue_size, worker_count and dedupe_size must be positive", ErrInvalidConfig)
	}
	if c.HTTP.ParseRate <= 0 || c.HTTP.ParseBurst < 1 {
		return fmt.Errorf("%w: http parse_rate and parse_burst must be positive", ErrInvalidConfig)
	}
	if c.HTTP.MaxTextLength < 1 {
		return fmt.Errorf("%w: http.max_text_length must be positive", ErrInvalidConfig)
	}
	return nil
}

// Location loads the configured time zone. An empty zone means UTC.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// MailEnabled reports whether SMTP delivery is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.To != ""
}
