package remote

import (
	"fmt"
	"net/url"
	"strings"
)

// Config holds the configuration for the job store client
//
// Fields:
// - BaseURL: job store endpoint, e.g. http://localhost:8000
// - Timeout: per-request timeout in seconds
// - RatePerSecond: sustained request rate, 0 disables throttling
// - Burst: requests allowed above the sustained rate
type Config struct {
	BaseURL       string  `json:"base_url"`
	Timeout       int     `json:"timeout"`
	RatePerSecond float64 `json:"rate_per_second"`
	Burst         int     `json:"burst"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must be http or https, got %q", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL must include a host, got %q", c.BaseURL)
	}
	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if c.RatePerSecond < 0 {
		return fmt.Errorf("rate must not be negative")
	}
	if c.RatePerSecond > 0 && c.Burst < 1 {
		return fmt.Errorf("burst must be greater than 0 when rate limiting is enabled")
	}
	return nil
}
