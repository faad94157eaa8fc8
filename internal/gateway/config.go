package gateway

import (
	"time"

	"github.com/earmeout/earmeout/internal/security"
)

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// TurnTimeout bounds one chat turn once the client has been detached
	// from it. Client disconnects do not cancel a turn; this does.
	TurnTimeout time.Duration `yaml:"turn_timeout"`

	// MaxMessageBytes caps the size of one user message.
	MaxMessageBytes int `yaml:"max_message_bytes"`

	CORS      CORSConfig               `yaml:"cors"`
	RateLimit security.RateLimitConfig `yaml:"rate_limit"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = ":3001"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 90 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = 60 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = security.DefaultMaxMessageSize
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	// AllowedOrigins holds exact origins or "*" for any. Defaults to "*".
	AllowedOrigins []string `yaml:"allowed_origins"`
}
