package cron

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/earmeout/earmeout/internal/conversation"
	"github.com/earmeout/earmeout/internal/security"
)

const defaultRetentionSchedule = "17 * * * *"

// RetentionJob deletes conversations that have not been updated for MaxAge.
type RetentionJob struct {
	Pruner       conversation.Pruner
	MaxAge       time.Duration
	Logger       *slog.Logger
	Audit        *security.AuditLogger
	ScheduleExpr string // empty = default "17 * * * *"

	// Now is the clock used to compute the cutoff (default time.Now).
	Now func() time.Time
}

// Compile-time interface check.
var _ Job = (*RetentionJob)(nil)

// Name implements Job.
func (j *RetentionJob) Name() string {
	return "conversation_retention"
}

// Schedule implements Job.
func (j *RetentionJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return defaultRetentionSchedule
}

// Run prunes conversations last updated before now minus MaxAge.
func (j *RetentionJob) Run(ctx context.Context) error {
	if j.MaxAge <= 0 {
		return nil
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	cutoff := now().Add(-j.MaxAge)

	pruned, err := j.Pruner.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cron: prune conversations: %w", err)
	}
	if pruned == 0 {
		return nil
	}

	if j.Logger != nil {
		j.Logger.Info("cron: pruned stale conversations", "count", pruned, "cutoff", cutoff)
	}
	j.Audit.Log(security.AuditEvent{
		Type:   security.EventRetentionPrune,
		Detail: "stale conversations deleted",
		Metadata: map[string]string{
			"count":  strconv.Itoa(pruned),
			"cutoff": cutoff.UTC().Format(time.RFC3339),
		},
	})
	return nil
}
