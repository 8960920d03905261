package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURI      string
	ListenAddr       string
	AppOrigin        string
	TaskPath         string
	TelegramToken    string
	TelegramEndpoint string
	GraceWindow      time.Duration
	UpcomingWindow   time.Duration
	DispatchInterval time.Duration
	Timezone         string
}

var defaults = map[string]interface{}{
	"LISTEN_ADDR":              ":8080",
	"APP_ORIGIN":               "http://localhost:3000",
	"TASK_PATH":                "/tasks/",
	"TELEGRAM_ENDPOINT":        "https://api.telegram.org/bot%s/%s",
	"REMINDER_GRACE_WINDOW":    "5m",
	"REMINDER_UPCOMING_WINDOW": "24h",
	"DISPATCH_INTERVAL":        "1m",
	"TIMEZONE":                 "UTC",
}

// Load reads the environment, after an optional .env file in the working
// directory.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// AutomaticEnv only answers for keys viper already knows about.
	v.SetDefault("DATABASE_URI", "")
	v.SetDefault("TELEGRAM_TOKEN", "")

	cfg := &Config{
		DatabaseURI:      strings.TrimSpace(v.GetString("DATABASE_URI")),
		ListenAddr:       v.GetString("LISTEN_ADDR"),
		AppOrigin:        strings.TrimRight(v.GetString("APP_ORIGIN"), "/"),
		TaskPath:         v.GetString("TASK_PATH"),
		TelegramToken:    strings.TrimSpace(v.GetString("TELEGRAM_TOKEN")),
		TelegramEndpoint: v.GetString("TELEGRAM_ENDPOINT"),
		GraceWindow:      v.GetDuration("REMINDER_GRACE_WINDOW"),
		UpcomingWindow:   v.GetDuration("REMINDER_UPCOMING_WINDOW"),
		DispatchInterval: v.GetDuration("DISPATCH_INTERVAL"),
		Timezone:         v.GetString("TIMEZONE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURI == "" {
		errs = append(errs, errors.New("DATABASE_URI is required"))
	}
	if c.GraceWindow < 0 {
		errs = append(errs, fmt.Errorf("REMINDER_GRACE_WINDOW must not be negative, got %s", c.GraceWindow))
	}
	if c.UpcomingWindow <= 0 {
		errs = append(errs, fmt.Errorf("REMINDER_UPCOMING_WINDOW must be positive, got %s", c.UpcomingWindow))
	}
	if c.DispatchInterval <= 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_INTERVAL must be positive, got %s", c.DispatchInterval))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	}
	return errors.Join(errs...)
}

// Location is the zone reminder times are rendered in. Validate has already
// checked the name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UsesPostgres reports whether DatabaseURI names a Postgres server rather
// than an embedded SQLite file.
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURI, "postgres://") || strings.HasPrefix(c.DatabaseURI, "postgresql://")
}

// SQLitePath strips the sqlite:// scheme, if any.
func (c *Config) SQLitePath() string {
	return strings.TrimPrefix(c.DatabaseURI, "sqlite://")
}
