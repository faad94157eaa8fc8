package core

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

// lifecycleModule implements Starter and Stopper and records calls in order.
type lifecycleModule struct {
	trackingModule
	log *[]string
}

func (m *lifecycleModule) ModuleInfo() ModuleInfo {
	id, log, startErr := m.id, m.log, m.startErr
	return ModuleInfo{
		ID: id,
		New: func() Module {
			return &lifecycleModule{trackingModule: trackingModule{id: id, startErr: startErr}, log: log}
		},
	}
}

func (m *lifecycleModule) Start() error {
	*m.log = append(*m.log, "start "+string(m.id))
	return m.startErr
}

func (m *lifecycleModule) Stop(context.Context) error {
	*m.log = append(*m.log, "stop "+string(m.id))
	return nil
}

// passiveModule has no Start method but owns a resource released on Stop.
type passiveModule struct {
	id  ModuleID
	log *[]string
}

func (m *passiveModule) ModuleInfo() ModuleInfo {
	id, log := m.id, m.log
	return ModuleInfo{ID: id, New: func() Module { return &passiveModule{id: id, log: log} }}
}

func (m *passiveModule) Stop(context.Context) error {
	*m.log = append(*m.log, "stop "+string(m.id))
	return nil
}

func TestApp_StartStopOrder(t *testing.T) {
	t.Cleanup(resetRegistry)

	var log []string
	RegisterModule(&lifecycleModule{trackingModule: trackingModule{id: "test.a"}, log: &log})
	RegisterModule(&passiveModule{id: "test.b", log: &log})
	RegisterModule(&lifecycleModule{trackingModule: trackingModule{id: "test.c"}, log: &log})

	app := NewApp(NewAppContext(nil, t.TempDir()))
	if err := app.LoadModules([]string{"test.a", "test.b", "test.c"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	app.Stop()

	want := []string{"start test.a", "start test.c", "stop test.c", "stop test.b", "stop test.a"}
	if !slices.Equal(log, want) {
		t.Errorf("lifecycle = %v, want %v", log, want)
	}
}

func TestApp_StartFailureStopsEachModuleOnce(t *testing.T) {
	t.Cleanup(resetRegistry)

	var log []string
	RegisterModule(&lifecycleModule{trackingModule: trackingModule{id: "test.a"}, log: &log})
	RegisterModule(&lifecycleModule{trackingModule: trackingModule{id: "test.b", startErr: errors.New("boom")}, log: &log})
	RegisterModule(&passiveModule{id: "test.c", log: &log})

	app := NewApp(NewAppContext(nil, t.TempDir()))
	if err := app.LoadModules([]string{"test.a", "test.b", "test.c"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); err == nil {
		t.Fatal("expected Start error")
	}

	want := []string{"start test.a", "start test.b", "stop test.a", "stop test.c", "stop test.b"}
	if !slices.Equal(log, want) {
		t.Errorf("lifecycle = %v, want %v", log, want)
	}
}

func TestApp_RunReturnsWhenContextDone(t *testing.T) {
	t.Cleanup(resetRegistry)

	var log []string
	RegisterModule(&lifecycleModule{trackingModule: trackingModule{id: "test.run"}, log: &log})

	app := NewApp(NewAppContext(nil, t.TempDir()))
	if err := app.LoadModules([]string{"test.run"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(log, []string{"start test.run", "stop test.run"}) {
		t.Errorf("lifecycle = %v", log)
	}
}

func TestApp_ReleaseWithoutStart(t *testing.T) {
	t.Cleanup(resetRegistry)

	var log []string
	RegisterModule(&passiveModule{id: "test.a", log: &log})
	RegisterModule(&lifecycleModule{trackingModule: trackingModule{id: "test.b"}, log: &log})

	app := NewApp(NewAppContext(nil, t.TempDir()))
	if err := app.LoadModules([]string{"test.a", "test.b"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	app.Release()

	if !slices.Equal(log, []string{"stop test.b", "stop test.a"}) {
		t.Errorf("lifecycle = %v", log)
	}
	if len(app.Modules()) != 0 {
		t.Errorf("Modules() = %v, want none after Release", app.Modules())
	}
}
