// Package config loads chainref settings from defaults, an optional YAML
// file, a .env file and the environment, in that order.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all chainref configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Query   QueryConfig   `yaml:"query"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures the inference backend and its transport.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	ConnectTimeout string `yaml:"connect_timeout"`
	ReadTimeout    string `yaml:"read_timeout"`
	WriteTimeout   string `yaml:"write_timeout"`
}

// QueryConfig holds UI-level query defaults.
type QueryConfig struct {
	DefaultTheme string `yaml:"default_theme"`
}

// ServerConfig configures `chainref serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
	LogBodies   bool   `yaml:"log_bodies"` // Dump backend traffic at debug level
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:        "https://us-central1-link-a-verse-backend.cloudfunctions.net/",
			ConnectTimeout: "30s",
			ReadTimeout:    "60s",
			WriteTimeout:   "30s",
		},
		Query: QueryConfig{
			DefaultTheme: "Sabbath",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:     "info",
			LogBodies: true,
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env is fine.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Backend.BaseURL, "CHAINREF_BASE_URL")
	setString(&c.Backend.ConnectTimeout, "CHAINREF_CONNECT_TIMEOUT")
	setString(&c.Backend.ReadTimeout, "CHAINREF_READ_TIMEOUT")
	setString(&c.Backend.WriteTimeout, "CHAINREF_WRITE_TIMEOUT")
	setString(&c.Query.DefaultTheme, "CHAINREF_THEME")
	setString(&c.Server.Addr, "CHAINREF_ADDR")
	setString(&c.Logging.Level, "CHAINREF_LOG_LEVEL")

	if raw := strings.TrimSpace(os.Getenv("CHAINREF_LOG_BODIES")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			c.Logging.LogBodies = v
		}
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("CHAINREF_ADDR") == "" {
		if strings.HasPrefix(port, ":") {
			c.Server.Addr = port
		} else {
			c.Server.Addr = ":" + port
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend base_url %q", c.Backend.BaseURL)
	}
	for name, raw := range map[string]string{
		"connect_timeout": c.Backend.ConnectTimeout,
		"read_timeout":    c.Backend.ReadTimeout,
		"write_timeout":   c.Backend.WriteTimeout,
	} {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid backend %s %q: %w", name, raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("backend %s must be positive, got %s", name, raw)
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	return nil
}

// ConnectTimeoutDuration returns the parsed connect timeout.
func (c *BackendConfig) ConnectTimeoutDuration() time.Duration {
	return durationOrZero(c.ConnectTimeout)
}

// ReadTimeoutDuration returns the parsed read timeout.
func (c *BackendConfig) ReadTimeoutDuration() time.Duration {
	return durationOrZero(c.ReadTimeout)
}

// WriteTimeoutDuration returns the parsed write timeout.
func (c *BackendConfig) WriteTimeoutDuration() time.Duration {
	return durationOrZero(c.WriteTimeout)
}

// durationOrZero is only used on validated values. A bad value yields 0 and
// the transport falls back to its default.
func durationOrZero(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}
