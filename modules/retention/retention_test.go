package retention

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/earmeout/earmeout/internal/conversation"
	"github.com/earmeout/earmeout/internal/core"
	"github.com/earmeout/earmeout/internal/security"
	"github.com/earmeout/earmeout/internal/security/securitytest"
)

func yamlNode(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	return doc.Content[0]
}

func newModule(t *testing.T, src string, ctx *core.AppContext) *Module {
	t.Helper()
	m := &Module{}
	if err := m.Configure(yamlNode(t, src)); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return m
}

func TestConfigure(t *testing.T) {
	t.Parallel()

	m := &Module{}
	if err := m.Configure(yamlNode(t, "max_age: 720h\nschedule: \"0 4 * * *\"\nrun_on_start: true\n")); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if m.config.MaxAge != 720*time.Hour {
		t.Errorf("max_age = %s, want 720h", m.config.MaxAge)
	}
	if m.config.Schedule != "0 4 * * *" || !m.config.RunOnStart {
		t.Errorf("config = %+v", m.config)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"zero", Config{}, false},
		{"valid", Config{MaxAge: time.Hour, Schedule: "*/30 * * * *"}, false},
		{"negative age", Config{MaxAge: -time.Hour}, true},
		{"bad schedule", Config{MaxAge: time.Hour, Schedule: "every day"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := &Module{config: tt.cfg}
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStart_DisabledWithoutMaxAge(t *testing.T) {
	t.Parallel()

	ctx := core.NewAppContext(slog.Default(), t.TempDir())
	m := newModule(t, "schedule: \"* * * * *\"\n", ctx)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.scheduler != nil {
		t.Error("scheduler started with retention disabled")
	}
	if err := m.PruneNow(context.Background()); err == nil {
		t.Error("PruneNow should fail when retention is not running")
	}
}

func TestStart_NoStore(t *testing.T) {
	t.Parallel()

	ctx := core.NewAppContext(slog.Default(), t.TempDir())
	m := newModule(t, "max_age: 1h\n", ctx)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.scheduler != nil {
		t.Error("scheduler started without a store")
	}
}

func TestPruneNow(t *testing.T) {
	t.Parallel()

	store := conversation.NewInMemoryStore()
	rec, err := store.Create(context.Background(), "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	audit, events := securitytest.NewTestAuditLogger()
	ctx := core.NewAppContext(slog.Default(), t.TempDir())
	ctx.RegisterService(conversation.StoreService, store)
	ctx.RegisterService("security.audit", audit)

	// A 1ns max age makes every conversation stale by the time the job runs.
	m := newModule(t, "max_age: 1ns\nschedule: \"0 0 1 1 *\"\n", ctx)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	if err := m.PruneNow(context.Background()); err != nil {
		t.Fatalf("prune now: %v", err)
	}
	if _, err := store.Get(context.Background(), rec.ID, "alice"); !errors.Is(err, conversation.ErrNotFound) {
		t.Errorf("stale conversation still present: %v", err)
	}
	if events.Count(security.EventRetentionPrune) != 1 {
		t.Errorf("retention audit events = %d, want 1", events.Count(security.EventRetentionPrune))
	}
}
