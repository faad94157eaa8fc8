package openai

import (
	"fmt"
	"strings"
	"time"
)

// Default generation parameters.
const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "google/gemini-3-pro-preview"
	defaultMaxTokens   = 1000
	defaultTemperature = 0.7
	defaultTimeout     = "60s"
)

// Config holds the configuration for the OpenAI provider module.
type Config struct {
	// APIKey is a single credential. APIKeys lists candidates in priority
	// order; the first non-empty one is used when APIKey is empty.
	APIKey  string   `yaml:"api_key"`
	APIKeys []string `yaml:"api_keys"`

	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
	Timeout     string   `yaml:"timeout"`
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Temperature == nil {
		t := defaultTemperature
		c.Temperature = &t
	}
	if c.Timeout == "" {
		c.Timeout = defaultTimeout
	}
}

// resolveKey returns the first non-blank credential.
func (c *Config) resolveKey() string {
	if k := strings.TrimSpace(c.APIKey); k != "" {
		return k
	}
	for _, k := range c.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			return k
		}
	}
	return ""
}

// parsedTimeout returns the timeout as a time.Duration.
// Assumes the value has been validated by validateTimeout.
func (c *Config) parsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// validateTimeout checks that the timeout string is a valid Go duration.
func (c *Config) validateTimeout() error {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("provider.openai: invalid timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return fmt.Errorf("provider.openai: timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
