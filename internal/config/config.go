// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultShutdownTimeout = "15s"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "congresbot"
	DefaultPGSSLMode       = "disable"
	DefaultTimezone        = "Europe/Amsterdam"
	DefaultBirthdayCron    = "0 5 0 * * *"
	DefaultOAuthScope      = "openid"
	DefaultStateTTL        = "1h"
	DefaultMembersAPIURL   = "https://api.congressus.nl/v30"
	DefaultSendsPerSecond  = 25
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Telegram   TelegramConfig   `toml:"telegram"`
	Congressus CongressusConfig `toml:"congressus"`
	Linking    LinkingConfig    `toml:"linking"`
	Schedule   ScheduleConfig   `toml:"schedule"`
	Broadcast  BroadcastConfig  `toml:"broadcast"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP listen address and the graceful stop budget.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	PublicURL       string `toml:"public_url"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
// URL, when set, takes precedence over the individual fields.
type PostgresConfig struct {
	URL      string `toml:"url"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// TelegramConfig holds the bot token and the optional webhook domain.
// A non-empty WebhookDomain switches update delivery from polling to webhook.
type TelegramConfig struct {
	Token         string `toml:"token"`
	WebhookDomain string `toml:"webhook_domain"`
	WebhookSecret string `toml:"webhook_secret"`
}

// CongressusConfig holds the OAuth client and members API settings.
type CongressusConfig struct {
	Domain        string `toml:"domain"`
	ClientID      string `toml:"client_id"`
	ClientSecret  string `toml:"client_secret"`
	Scope         string `toml:"scope"`
	APIToken      string `toml:"api_token"`
	MembersAPIURL string `toml:"members_api_url"`
}

// LinkingConfig holds the pending correlation token lifetime ("0" disables expiry).
type LinkingConfig struct {
	StateTTL string `toml:"state_ttl"`
}

// ScheduleConfig holds the timezone and the daily birthday cron pattern.
type ScheduleConfig struct {
	Timezone     string `toml:"timezone"`
	BirthdayCron string `toml:"birthday_cron"`
}

// BroadcastConfig holds the fan-out send rate.
type BroadcastConfig struct {
	SendsPerSecond int `toml:"sends_per_second"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:            DefaultHTTPAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Congressus: CongressusConfig{
			Scope:         DefaultOAuthScope,
			MembersAPIURL: DefaultMembersAPIURL,
		},
		Linking: LinkingConfig{
			StateTTL: DefaultStateTTL,
		},
		Schedule: ScheduleConfig{
			Timezone:     DefaultTimezone,
			BirthdayCron: DefaultBirthdayCron,
		},
		Broadcast: BroadcastConfig{
			SendsPerSecond: DefaultSendsPerSecond,
		},
	}
}

// Load reads and parses the TOML config file at path, applies default values
// for missing fields and then environment overrides. A missing file is not an
// error: deployments may configure everything through the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg, os.LookupEnv)
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) {
	set := func(dst *string, key string) {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
		}
	}
	set(&cfg.Telegram.Token, "TG_TOKEN")
	set(&cfg.Telegram.WebhookDomain, "WEBHOOK_DOMAIN")
	set(&cfg.Telegram.WebhookSecret, "WEBHOOK_SECRET")
	set(&cfg.Congressus.Domain, "CONGRESSUS_DOMAIN")
	set(&cfg.Congressus.ClientID, "CONGRESSUS_CLIENT_ID")
	set(&cfg.Congressus.ClientSecret, "CONGRESSUS_CLIENT_SECRET")
	set(&cfg.Congressus.APIToken, "CONGRESSUS_TOKEN")
	set(&cfg.Schedule.Timezone, "TIMEZONE")
	set(&cfg.Server.Addr, "HTTP_ADDR")
	set(&cfg.Server.PublicURL, "PUBLIC_URL")
	set(&cfg.Postgres.URL, "DATABASE_URL")
	set(&cfg.Log.Level, "LOG_LEVEL")
	set(&cfg.Log.Format, "LOG_FORMAT")
}
