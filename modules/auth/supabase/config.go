package supabase

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the configuration for the auth.supabase module.
type Config struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL string `yaml:"url"`

	AnonKey        string `yaml:"anon_key"`
	ServiceRoleKey string `yaml:"service_role_key"`

	// JWTSecret enables local HS256 verification.
	JWTSecret string `yaml:"jwt_secret"`

	// Audience, when set, must appear in the token's aud claim.
	Audience string `yaml:"audience"`

	Timeout string `yaml:"timeout"`
}

func (c *Config) defaults() {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.AnonKey = strings.TrimSpace(c.AnonKey)
	c.ServiceRoleKey = strings.TrimSpace(c.ServiceRoleKey)
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
}

// apiKey returns the key sent in the apikey header.
func (c *Config) apiKey() string {
	if c.AnonKey != "" {
		return c.AnonKey
	}
	return c.ServiceRoleKey
}

func (c *Config) parsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

func (c *Config) validate() error {
	var errs []error
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("auth.supabase: invalid url %q", c.URL))
		}
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("auth.supabase: invalid timeout %q", c.Timeout))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.supabase: jwt_secret is too short"))
	}
	return errors.Join(errs...)
}
