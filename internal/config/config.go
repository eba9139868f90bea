package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const minSecretLen = 16

// Config keeps runtime settings for the journal.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL" envDefault:"work_journal.db"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	SessionSecret     string        `env:"SESSION_SECRET"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"work-journal-session"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SessionSecure     bool          `env:"SESSION_SECURE" envDefault:"false"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	TelegramToken   string `env:"TELEGRAM_TOKEN"`
	TelegramOwnerID int64  `env:"TELEGRAM_OWNER_ID"`

	DigestAt string `env:"DIGEST_AT" envDefault:"sun 18:00"`

	// Derived from DigestAt.
	DigestWeekday time.Weekday
	DigestTime    string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.SessionSecret = strings.TrimSpace(cfg.SessionSecret)
	cfg.AdminEmail = strings.TrimSpace(cfg.AdminEmail)
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)

	if cfg.SessionSecret == "" {
		return cfg, fmt.Errorf("SESSION_SECRET is required")
	}
	if len(cfg.SessionSecret) < minSecretLen {
		return cfg, fmt.Errorf("SESSION_SECRET must be at least %d characters", minSecretLen)
	}
	if cfg.SessionTTL <= 0 {
		return cfg, fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return cfg, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}
	if cfg.TelegramToken != "" && cfg.TelegramOwnerID == 0 {
		return cfg, fmt.Errorf("TELEGRAM_OWNER_ID is required when TELEGRAM_TOKEN is set")
	}

	weekday, clock, err := parseDigestAt(cfg.DigestAt)
	if err != nil {
		return cfg, fmt.Errorf("DIGEST_AT: %w", err)
	}
	cfg.DigestWeekday = weekday
	cfg.DigestTime = clock

	return cfg, nil
}

// BotEnabled reports whether the Telegram front-end should run.
func (c Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

// parseDigestAt splits values like "sun 18:00" into a weekday and HH:MM.
func parseDigestAt(raw string) (time.Weekday, string, error) {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("invalid value %q, expected \"<weekday> HH:MM\"", raw)
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if fields[0] == name || fields[0] == name[:3] {
			return d, fields[1], nil
		}
	}
	return 0, "", fmt.Errorf("unknown weekday %q", fields[0])
}
