// Package retention implements the retention.cron module, which deletes
// conversations that have been idle longer than a configured age.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	rcron "github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/earmeout/earmeout/internal/conversation"
	"github.com/earmeout/earmeout/internal/core"
	"github.com/earmeout/earmeout/internal/cron"
	"github.com/earmeout/earmeout/internal/security"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Config holds the retention settings.
type Config struct {
	// MaxAge is how long a conversation may stay untouched. Zero disables
	// retention.
	MaxAge time.Duration `yaml:"max_age"`

	// Schedule is a 5-field cron expression. Defaults to hourly.
	Schedule string `yaml:"schedule"`

	// RunOnStart prunes once immediately after startup.
	RunOnStart bool `yaml:"run_on_start"`
}

// Module schedules the conversation retention job.
type Module struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	scheduler *cron.Scheduler
	job       *cron.RetentionJob
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "retention.cron",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("retention: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	m.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	var errs []error
	if m.config.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("retention: max_age must be non-negative, got %s", m.config.MaxAge))
	}
	if m.config.Schedule != "" {
		parser := rcron.NewParser(rcron.Minute | rcron.Hour | rcron.Dom | rcron.Month | rcron.Dow)
		if _, err := parser.Parse(m.config.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("retention: invalid schedule %q: %w", m.config.Schedule, err))
		}
	}
	return errors.Join(errs...)
}

// Start implements core.Starter. The store is resolved here so the
// in-memory fallback registered during wiring is picked up too.
func (m *Module) Start() error {
	if m.config.MaxAge == 0 {
		m.logger.Info("retention disabled")
		return nil
	}

	pruner, ok := core.ServiceAs[conversation.Pruner](m.appCtx, conversation.StoreService)
	if !ok {
		m.logger.Warn("conversation store cannot prune, retention disabled")
		return nil
	}
	audit, _ := core.ServiceAs[*security.AuditLogger](m.appCtx, "security.audit")

	m.job = &cron.RetentionJob{
		Pruner:       pruner,
		MaxAge:       m.config.MaxAge,
		Logger:       m.logger,
		Audit:        audit,
		ScheduleExpr: m.config.Schedule,
	}
	m.scheduler = cron.NewScheduler(m.logger)
	if err := m.scheduler.RegisterJob(m.job); err != nil {
		return err
	}
	if err := m.scheduler.Start(); err != nil {
		return err
	}

	if m.config.RunOnStart {
		go func() {
			if err := m.scheduler.RunNow(context.Background(), m.job.Name()); err != nil {
				m.logger.Error("retention: initial prune failed", "error", err)
			}
		}()
	}

	m.logger.Info("retention scheduled",
		"max_age", m.config.MaxAge,
		"schedule", m.job.Schedule(),
	)
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Stop(ctx)
}

// PruneNow runs the retention job once. It returns an error when
// retention is not active.
func (m *Module) PruneNow(ctx context.Context) error {
	if m.scheduler == nil {
		return errors.New("retention: not running")
	}
	return m.scheduler.RunNow(ctx, m.job.Name())
}
