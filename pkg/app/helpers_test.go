package app

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	// Register every module the built-in configuration names.
	_ "github.com/earmeout/earmeout/modules/auth/supabase"
	_ "github.com/earmeout/earmeout/modules/provider/gemini"
	_ "github.com/earmeout/earmeout/modules/provider/openai"
	_ "github.com/earmeout/earmeout/modules/retention"
	_ "github.com/earmeout/earmeout/modules/store/sqlstore"
	_ "github.com/earmeout/earmeout/internal/gateway"
)

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// testParams returns RunParams isolated from the host: no .env, a temp
// data dir and captured logs.
func testParams(t *testing.T, configPath string) (RunParams, *syncBuffer) {
	t.Helper()
	logs := &syncBuffer{}
	return RunParams{
		ConfigPath: configPath,
		EnvFile:    filepath.Join(t.TempDir(), "missing.env"),
		DataDir:    t.TempDir(),
		Version:    "test",
		LogOutput:  logs,
	}, logs
}
