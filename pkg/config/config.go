package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ekaya-console/pkg/retry"
)

// Config holds all configuration for ekaya-console.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, tokens, session keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Analysis backend the console talks to
	Backend BackendConfig `yaml:"backend"`

	// Polling refresh of the project list
	Refresh RefreshConfig `yaml:"refresh"`

	// Browser-facing HTTP settings
	HTTP HTTPConfig `yaml:"http"`

	// SessionSecret signs the flash-notice cookie. Secret - not in YAML.
	SessionSecret string `yaml:"-" env:"SESSION_SECRET"`
}

// BackendConfig describes how to reach the analysis backend.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" env:"BACKEND_URL" env-default:"http://localhost:8000"`
	Timeout time.Duration `yaml:"timeout" env:"BACKEND_TIMEOUT" env-default:"30s"`
	// UserID is sent as user_id when creating projects.
	UserID string `yaml:"user_id" env:"BACKEND_USER_ID" env-default:""`

	APIKey      string `yaml:"-" env:"BACKEND_API_KEY"`      // Secret - sent as X-API-KEY
	AccessToken string `yaml:"-" env:"BACKEND_ACCESS_TOKEN"` // Secret - sent as Bearer token
}

// RefreshConfig controls the poller and the retry applied to project fetches.
type RefreshConfig struct {
	Interval          time.Duration `yaml:"interval" env:"REFRESH_INTERVAL" env-default:"10s"`
	FetchRetries      int           `yaml:"fetch_retries" env:"REFRESH_FETCH_RETRIES" env-default:"2"`
	FetchInitialDelay time.Duration `yaml:"fetch_initial_delay" env:"REFRESH_FETCH_INITIAL_DELAY" env-default:"200ms"`
	FetchMaxDelay     time.Duration `yaml:"fetch_max_delay" env:"REFRESH_FETCH_MAX_DELAY" env-default:"2s"`
}

// HTTPConfig holds CORS and rate limiting for the console's own API.
type HTTPConfig struct {
	// AllowedOriginsStr is a comma-separated list of origins allowed by CORS.
	AllowedOriginsStr string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:5173"`
	// AllowedOrigins is the parsed list from AllowedOriginsStr (not from config file).
	AllowedOrigins []string `yaml:"-"`
	// MutationsPerMinute limits mutating requests per client IP. Zero disables the limit.
	MutationsPerMinute int `yaml:"mutations_per_minute" env:"MUTATIONS_PER_MINUTE" env-default:"60"`
}

// RetryConfig converts the fetch settings into a retry.Config.
func (r RefreshConfig) RetryConfig() *retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = r.FetchRetries
	if r.FetchInitialDelay > 0 {
		cfg.InitialDelay = r.FetchInitialDelay
	}
	if r.FetchMaxDelay > 0 {
		cfg.MaxDelay = r.FetchMaxDelay
	}
	return cfg
}

// Load reads configuration from config.yaml (if present) with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit YAML path. A missing file falls back to
// environment variables and defaults.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.parseComplexFields()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() {
	c.HTTP.AllowedOrigins = parseList(c.HTTP.AllowedOriginsStr)
	c.Backend.BaseURL = ResolveURLForDocker(strings.TrimRight(c.Backend.BaseURL, "/"))
}

func (c *Config) validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend base_url must be http or https, got %q", c.Backend.BaseURL)
	}
	if u.Host == "" {
		return errors.New("backend base_url has no host")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", c.Refresh.Interval)
	}
	if c.Refresh.FetchRetries < 0 {
		return fmt.Errorf("refresh fetch_retries must not be negative, got %d", c.Refresh.FetchRetries)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive, got %s", c.Backend.Timeout)
	}
	return nil
}

// Addr returns the listen address for the console's HTTP server.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}

// parseList splits a comma-separated value, dropping empty entries.
func parseList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
