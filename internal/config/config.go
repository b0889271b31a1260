// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads runtime configuration from NEWSDESK_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// MinSessionSecretLength is the minimum session secret length in bytes.
// The CSRF middleware derives its 32-byte key from it.
const MinSessionSecretLength = 32

// MinPasswordLength is shared by registration and the main admin seed.
const MinPasswordLength = 6

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"NEWSDESK_DB_PATH" envDefault:"./data/newsdesk.db"`
	SessionSecret string `env:"NEWSDESK_SESSION_SECRET,required"`
	ServerHost    string `env:"NEWSDESK_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"NEWSDESK_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"NEWSDESK_ENV" envDefault:"development"`
	LogLevel      string `env:"NEWSDESK_LOG_LEVEL" envDefault:"info"`
	UploadsDir    string `env:"NEWSDESK_UPLOADS_DIR" envDefault:"./uploads"`

	SiteName string `env:"NEWSDESK_SITE_NAME" envDefault:"Newsdesk"`
	SiteURL  string `env:"NEWSDESK_SITE_URL" envDefault:"http://localhost:8080"`

	// Optional Redis URL; login protection state is shared through it when set.
	RedisURL string `env:"NEWSDESK_REDIS_URL"`

	SMTPHost     string `env:"NEWSDESK_SMTP_HOST"`
	SMTPPort     int    `env:"NEWSDESK_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"NEWSDESK_SMTP_USERNAME"`
	SMTPPassword string `env:"NEWSDESK_SMTP_PASSWORD"`
	SMTPFrom     string `env:"NEWSDESK_SMTP_FROM"`
	// starttls, tls (implicit, port 465) or none.
	SMTPTLS string `env:"NEWSDESK_SMTP_TLS" envDefault:"starttls"`

	// Origins allowed to call the public JSON endpoints.
	CORSOrigins []string `env:"NEWSDESK_CORS_ORIGINS" envSeparator:","`

	// CIDRs of reverse proxies whose forwarding headers are trusted.
	TrustedProxies []string `env:"NEWSDESK_TRUSTED_PROXIES" envSeparator:","`

	// First-boot seed for the main admin. Ignored once a main admin exists.
	MainAdminEmail    string `env:"NEWSDESK_MAIN_ADMIN_EMAIL"`
	MainAdminPassword string `env:"NEWSDESK_MAIN_ADMIN_PASSWORD"`

	EventRetentionDays int `env:"NEWSDESK_EVENT_RETENTION_DAYS" envDefault:"30"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// SMTPAddr returns the SMTP server address in host:port format.
func (c Config) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}

// SMTPEnabled returns true if outbound mail is configured.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// RedisEnabled returns true if a Redis URL is configured.
func (c Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

// SeedMainAdmin returns true if a main admin should be created on startup.
func (c Config) SeedMainAdmin() bool {
	return c.MainAdminEmail != "" && c.MainAdminPassword != ""
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("NEWSDESK_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("NEWSDESK_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return errors.New("NEWSDESK_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if c.Env != "development" && c.Env != "production" {
		return fmt.Errorf("NEWSDESK_ENV must be development or production, got %q", c.Env)
	}

	if c.SMTPEnabled() && c.SMTPFrom == "" {
		return errors.New("NEWSDESK_SMTP_FROM is required when NEWSDESK_SMTP_HOST is set")
	}

	switch c.SMTPTLS {
	case "starttls", "tls", "none":
	default:
		return fmt.Errorf("NEWSDESK_SMTP_TLS must be starttls, tls or none, got %q", c.SMTPTLS)
	}

	if c.MainAdminPassword != "" && len(c.MainAdminPassword) < MinPasswordLength {
		return fmt.Errorf("NEWSDESK_MAIN_ADMIN_PASSWORD must be at least %d characters", MinPasswordLength)
	}

	if c.EventRetentionDays < 1 {
		return fmt.Errorf("NEWSDESK_EVENT_RETENTION_DAYS must be positive, got %d", c.EventRetentionDays)
	}

	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}

// AdminConfig is the subset of settings the admin CLI needs. It does not
// require the session secret.
type AdminConfig struct {
	DBPath string `env:"NEWSDESK_DB_PATH" envDefault:"./data/newsdesk.db"`
}

// LoadAdmin parses the admin CLI settings from the environment.
func LoadAdmin() (*AdminConfig, error) {
	cfg := &AdminConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
