package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration
type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	DatabasePath    string        `yaml:"database_path"`
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	RateLimit       RateLimit     `yaml:"rate_limit"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RateLimit configures the per-IP request limiter
type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Default returns the configuration defaults
func Default() *Config {
	return &Config{
		ListenAddr:      ":8080",
		DatabasePath:    "tempora.db",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		RateLimit: RateLimit{
			Requests: 100,
			Window:   time.Minute,
		},
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads configuration from an optional YAML file and applies
// environment variable overrides on top. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides config fields from TEMPORA_* environment variables
func (c *Config) applyEnv() {
	if v := os.Getenv("TEMPORA_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("TEMPORA_DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("TEMPORA_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("TEMPORA_ACCESS_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AccessTokenTTL = d
		}
	}
	if v := os.Getenv("TEMPORA_REFRESH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RefreshTokenTTL = d
		}
	}
	if v := os.Getenv("TEMPORA_RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.Requests = n
		}
	}
	if v := os.Getenv("TEMPORA_RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RateLimit.Window = d
		}
	}
	if v := os.Getenv("TEMPORA_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required (set jwt_secret or TEMPORA_JWT_SECRET)")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}
