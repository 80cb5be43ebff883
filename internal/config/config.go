// Package config loads runtime configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"panic-list/internal/logger"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is shared by the server, the CLI and the migration tool.
type Config struct {
	BackendURL     string        `env:"BACKEND_URL,required"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`
	OrdersPageSize int           `env:"ORDERS_PAGE_SIZE" envDefault:"100"`

	// Cap on concurrent identity lookups per dashboard load.
	ResolveConcurrency int `env:"RESOLVE_CONCURRENCY" envDefault:"8"`
	// IANA zone name for displayed dates; "Local" uses the host zone.
	DisplayTimezone string `env:"DISPLAY_TIMEZONE" envDefault:"Local"`

	ServerAddr     string        `env:"SERVER_ADDR" envDefault:":8080"`
	JWTSecret      string        `env:"JWT_SECRET"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	DatabaseURL    string        `env:"DATABASE_URL"`

	// CLI session file; empty means the user config directory.
	SessionFile string `env:"SESSION_FILE"`

	Log logger.Config `envPrefix:"LOG_"`
}

// Load reads files (default ".env") into the environment without overriding
// variables that are already set, then parses and validates Config.
// Missing .env files are not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks rules env tags cannot express.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute http(s) url, got %q", c.BackendURL)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive, got %s", c.BackendTimeout)
	}
	if c.OrdersPageSize < 1 {
		return fmt.Errorf("ORDERS_PAGE_SIZE must be at least 1, got %d", c.OrdersPageSize)
	}
	if c.ResolveConcurrency < 1 {
		return fmt.Errorf("RESOLVE_CONCURRENCY must be at least 1, got %d", c.ResolveConcurrency)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// ValidateServer adds the checks only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be set and at least 32 characters long")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// Location resolves DisplayTimezone.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.DisplayTimezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("DISPLAY_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}
