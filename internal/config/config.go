package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/qtube-dashboard/pkg/log"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Values come from environment variables, optionally seeded from a .env
// file, with sensible defaults.
//
// Environment Variables:
// Job Store:
// - API_BASE: base URL of the job store (default: http://localhost:8000)
// - REQUEST_TIMEOUT: request timeout in seconds (default: 10)
// - REQUEST_RATE: max requests per second, 0 disables throttling (default: 10)
// - REQUEST_BURST: request burst size (default: 5)
//
// Polling:
// - REFRESH_INTERVAL_MS: revalidation interval in milliseconds (default: 4000)
// - JOBS_LIMIT: number of most recent jobs to fetch (default: 100)
//
// HTTP:
// - HTTP_ADDR: listen address of the dashboard server (default: :8080)
// - UI_STATIC_DIR: directory of the browser UI (default: /app/web)
// - UI_ENABLED: serve the browser UI (default: true)
//
// System:
// - DATA_DIR: directory of the session database (default: /app/data)
// - LOG_LEVEL: debug, info, warn or error (default: info)
// - SETTINGS_FILE: runtime client settings file (default: /app/config/client-settings.json)
type Config struct {
	Remote RemoteConfig `json:"remote"`
	Poll   PollConfig   `json:"poll"`
	HTTP   HTTPConfig   `json:"http"`
	System SystemConfig `json:"system"`
}

// RemoteConfig holds the job store connection settings
type RemoteConfig struct {
	BaseURL       string  `json:"base_url"`
	Timeout       int     `json:"timeout"`
	RatePerSecond float64 `json:"rate_per_second"`
	Burst         int     `json:"burst"`
}

type PollConfig struct {
	RefreshIntervalMS int `json:"refresh_interval_ms"`
	JobsLimit         int `json:"jobs_limit"`
}

// RefreshInterval returns the polling period as a duration.
func (c PollConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}

type HTTPConfig struct {
	Addr        string `json:"addr"`
	UIStaticDir string `json:"ui_static_dir"`
	UIEnabled   bool   `json:"ui_enabled"`
}

// SystemConfig holds the system configuration
type SystemConfig struct {
	DataDir      string `json:"data_dir"`
	LogLevel     string `json:"log_level"`
	SettingsFile string `json:"settings_file"`
}

const (
	DefaultAPIBase        = "http://localhost:8000"
	DefaultRefreshMS      = 4000
	DefaultJobsLimit      = 100
	MaxJobsLimit          = 500
	DefaultDataDir        = "/app/data"
	DefaultDBFile         = "qtube.db"
	DefaultRequestTimeout = 10
)

// DBPath is the session database location inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.System.DataDir, DefaultDBFile)
}

// Option is a function type for configuring Config
type Option func(*Config)

// WithAPIBase overrides the job store base URL, e.g. from a CLI flag.
func WithAPIBase(base string) Option {
	return func(c *Config) {
		if strings.TrimSpace(base) != "" {
			c.Remote.BaseURL = strings.TrimSpace(base)
		}
	}
}

func WithHTTPAddr(addr string) Option {
	return func(c *Config) {
		if strings.TrimSpace(addr) != "" {
			c.HTTP.Addr = addr
		}
	}
}

// LoadDotEnv loads variables from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Debug("Config: loaded %s", path)
	return nil
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Remote: RemoteConfig{
			BaseURL:       getEnvString("API_BASE", DefaultAPIBase),
			Timeout:       getEnvInt("REQUEST_TIMEOUT", DefaultRequestTimeout),
			RatePerSecond: getEnvFloat("REQUEST_RATE", 10),
			Burst:         getEnvInt("REQUEST_BURST", 5),
		},
		Poll: PollConfig{
			RefreshIntervalMS: getEnvInt("REFRESH_INTERVAL_MS", DefaultRefreshMS),
			JobsLimit:         getEnvInt("JOBS_LIMIT", DefaultJobsLimit),
		},
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", ":8080"),
			UIStaticDir: getEnvString("UI_STATIC_DIR", "/app/web"),
			UIEnabled:   getEnvBool("UI_ENABLED", true),
		},
		System: SystemConfig{
			DataDir:      getEnvString("DATA_DIR", DefaultDataDir),
			LogLevel:     getEnvString("LOG_LEVEL", "info"),
			SettingsFile: getEnvString("SETTINGS_FILE", DefaultClientSettingsFile),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: %+v", *config)
	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if err := validateBaseURL(c.Remote.BaseURL); err != nil {
		return fmt.Errorf("API_BASE: %w", err)
	}
	if c.Remote.Timeout < 1 {
		return fmt.Errorf("REQUEST_TIMEOUT must be at least 1 second")
	}
	if c.Remote.RatePerSecond < 0 {
		return fmt.Errorf("REQUEST_RATE must not be negative")
	}
	if c.Remote.RatePerSecond > 0 && c.Remote.Burst < 1 {
		return fmt.Errorf("REQUEST_BURST must be at least 1")
	}
	if err := c.ClientSettings().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
