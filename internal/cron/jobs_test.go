package cron

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/earmeout/earmeout/internal/security"
	"github.com/earmeout/earmeout/internal/security/securitytest"
)

type fakePruner struct {
	n      int
	err    error
	calls  int
	cutoff time.Time
}

func (p *fakePruner) Prune(_ context.Context, olderThan time.Time) (int, error) {
	p.calls++
	p.cutoff = olderThan
	return p.n, p.err
}

func TestRetentionJob_Defaults(t *testing.T) {
	t.Parallel()

	j := &RetentionJob{}
	if j.Name() != "conversation_retention" {
		t.Errorf("name = %q", j.Name())
	}
	if j.Schedule() != defaultRetentionSchedule {
		t.Errorf("schedule = %q, want %q", j.Schedule(), defaultRetentionSchedule)
	}

	j.ScheduleExpr = "0 3 * * *"
	if j.Schedule() != "0 3 * * *" {
		t.Errorf("schedule = %q, want custom expression", j.Schedule())
	}
}

func TestRetentionJob_PrunesBeforeCutoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &fakePruner{n: 3}
	audit, rec := securitytest.NewTestAuditLogger()

	j := &RetentionJob{
		Pruner: p,
		MaxAge: 30 * 24 * time.Hour,
		Logger: slog.Default(),
		Audit:  audit,
		Now:    func() time.Time { return now },
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if p.calls != 1 {
		t.Fatalf("prune calls = %d, want 1", p.calls)
	}
	want := now.Add(-30 * 24 * time.Hour)
	if !p.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", p.cutoff, want)
	}
	if rec.Count(security.EventRetentionPrune) != 1 {
		t.Errorf("retention audit events = %d, want 1", rec.Count(security.EventRetentionPrune))
	}
	ev := rec.Events()[0]
	if ev.Metadata["count"] != "3" {
		t.Errorf("audit count = %q, want 3", ev.Metadata["count"])
	}
}

func TestRetentionJob_NothingPrunedIsQuiet(t *testing.T) {
	t.Parallel()

	p := &fakePruner{}
	audit, rec := securitytest.NewTestAuditLogger()
	j := &RetentionJob{Pruner: p, MaxAge: time.Hour, Audit: audit}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rec.Events()) != 0 {
		t.Errorf("got %d audit events, want 0", len(rec.Events()))
	}
}

func TestRetentionJob_DisabledWithoutMaxAge(t *testing.T) {
	t.Parallel()

	p := &fakePruner{n: 5}
	j := &RetentionJob{Pruner: p}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if p.calls != 0 {
		t.Errorf("prune calls = %d, want 0", p.calls)
	}
}

func TestRetentionJob_PruneError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	j := &RetentionJob{Pruner: &fakePruner{err: boom}, MaxAge: time.Hour}

	err := j.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
}
