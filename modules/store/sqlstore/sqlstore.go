// Package sqlstore implements the store.sql module, a persistent
// conversation store over database/sql. PostgreSQL (lib/pq) serves hosted
// deployments such as a Supabase database; SQLite (modernc.org/sqlite,
// pure Go) serves single-node ones.
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/earmeout/earmeout/internal/conversation"
	"github.com/earmeout/earmeout/internal/core"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module opens the configured database and publishes it as the
// conversation store. Without a DSN it stays idle and the in-memory
// store is used instead.
type Module struct {
	config Config
	logger *slog.Logger
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.sql",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlstore: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if strings.TrimSpace(m.config.DSN) == "" {
		m.logger.Warn("no database configured, conversations will not survive a restart")
		return nil
	}

	store, err := Open(context.Background(), m.config, ctx.DataDir)
	if err != nil {
		return err
	}
	m.store = store

	ctx.RegisterService(conversation.StoreService, store)

	m.logger.Info("sql store provisioned",
		"dialect", store.Dialect(),
		"wal", store.dialect == dialectSQLite && m.config.walEnabled(),
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if m.store == nil {
		return nil
	}
	if err := m.store.Ping(context.Background()); err != nil {
		return fmt.Errorf("sqlstore: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	m.logger.Info("sql store stopping")
	return m.store.Close()
}

// Store returns the opened store, or nil when no DSN is configured.
func (m *Module) Store() *Store {
	return m.store
}
