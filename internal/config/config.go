package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the process-wide configuration. It is read from the
// environment once at startup and treated as immutable afterwards;
// components receive it by pointer and never read ambient state.
type Config struct {
	// Token authenticates calls against the Telegram Bot API.
	Token string `env:"TELEGRAM_TOKEN"`

	// PublicURL is the externally reachable host of this service, used to
	// build the webhook callback. Hosting platforms usually export it
	// without a scheme; both forms are accepted.
	PublicURL string `env:"PUBLIC_URL"`

	// ForwardURL, when set, receives a normalized copy of every handled
	// message. Empty disables forwarding.
	ForwardURL string `env:"FORWARD_URL"`

	// Hosted marks managed environments: the webhook is (re)registered
	// automatically when the server starts.
	Hosted bool `env:"HOSTED" env-default:"false"`

	ListenAddr string `env:"LISTEN_ADDR" env-default:":8080"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`

	// APIHost overrides the Telegram API host (tests point it at a local
	// server).
	APIHost string `env:"TELEGRAM_API_HOST" env-default:"https://api.telegram.org"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the config has usable values. A missing token or
// public URL is not an error here: the service boots and reports the gap
// through the health endpoint and registrar results.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if cfg.ListenAddr == "" {
		errs = append(errs, "LISTEN_ADDR must not be empty")
	}
	if !strings.HasPrefix(cfg.APIHost, "http://") && !strings.HasPrefix(cfg.APIHost, "https://") {
		errs = append(errs, "TELEGRAM_API_HOST must include a scheme")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// TelegramConfigured reports whether outbound Telegram calls can be made.
func (c *Config) TelegramConfigured() bool { return c.Token != "" }

// ForwardConfigured reports whether the secondary forward endpoint is set.
func (c *Config) ForwardConfigured() bool { return c.ForwardURL != "" }

// PublicBaseURL returns the public URL with a scheme, or "" when unset.
func (c *Config) PublicBaseURL() string {
	if c.PublicURL == "" {
		return ""
	}
	if strings.Contains(c.PublicURL, "://") {
		return strings.TrimSuffix(c.PublicURL, "/")
	}
	return "https://" + strings.TrimSuffix(c.PublicURL, "/")
}
