package sqlstore

import (
	"errors"
	"fmt"
)

const (
	defaultBusyTimeout  = 5000
	defaultMaxOpenConns = 10
	defaultDBFile       = "earmeout.db"
)

// Config holds the SQL store module configuration.
type Config struct {
	// DSN selects the database. postgres:// and postgresql:// URLs use
	// PostgreSQL; sqlite:<path>, file:<path> or a bare path use SQLite.
	// An empty DSN disables the module. "sqlite:" alone puts the database
	// file under the data directory.
	DSN string `yaml:"dsn"`

	// WAL enables WAL journal mode on SQLite. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds SQLite waits on a busy lock.
	BusyTimeout int `yaml:"busy_timeout"`

	// MaxOpenConns caps the PostgreSQL connection pool. SQLite always
	// uses a single connection.
	MaxOpenConns int `yaml:"max_open_conns"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = defaultMaxOpenConns
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	var errs []error
	if c.BusyTimeout < 0 {
		errs = append(errs, fmt.Errorf("sqlstore: busy_timeout must be non-negative, got %d", c.BusyTimeout))
	}
	if c.MaxOpenConns < 0 {
		errs = append(errs, fmt.Errorf("sqlstore: max_open_conns must be non-negative, got %d", c.MaxOpenConns))
	}
	return errors.Join(errs...)
}
