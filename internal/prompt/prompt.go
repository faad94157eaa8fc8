// Package prompt loads the persona directive sent ahead of every
// conversation as the system message.
package prompt

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultPrompt is used when no prompt file is configured, or the file is
// missing, empty or unreadable.
const DefaultPrompt = "You are Echo, a compassionate and empathetic AI mental health companion. " +
	"Provide a safe, non-judgmental space for users to express themselves."

// Loader reads the prompt file and caches it by modification time.
// Every call stats the file; the content is re-read only when it changed,
// so edits take effect on the next turn without a restart.
type Loader struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	content string
	modTime time.Time
	warned  bool
}

// NewLoader creates a Loader for path. An empty path always yields
// DefaultPrompt.
func NewLoader(path string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{path: path, logger: logger}
}

// Load returns the current prompt.
//
//   - No path, file missing or empty → DefaultPrompt, no error.
//   - ModTime unchanged → cached content.
//   - ModTime changed → file re-read.
//   - Any other I/O error is returned.
func (l *Loader) Load() (string, error) {
	if l.path == "" {
		return DefaultPrompt, nil
	}

	info, err := os.Stat(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.reset()
			return DefaultPrompt, nil
		}
		return "", err
	}
	modTime := info.ModTime()

	l.mu.RLock()
	if l.content != "" && l.modTime.Equal(modTime) {
		cached := l.content
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.reset()
			return DefaultPrompt, nil
		}
		return "", err
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		l.reset()
		return DefaultPrompt, nil
	}

	l.mu.Lock()
	l.content = content
	l.modTime = modTime
	l.warned = false
	l.mu.Unlock()

	return content, nil
}

// SystemPrompt returns the prompt, falling back to DefaultPrompt on error.
// The failure is logged once until the file becomes readable again.
func (l *Loader) SystemPrompt() string {
	content, err := l.Load()
	if err == nil {
		return content
	}

	l.mu.Lock()
	warn := !l.warned
	l.warned = true
	l.mu.Unlock()
	if warn {
		l.logger.Warn("could not read system prompt, using default", "path", l.path, "error", err)
	}
	return DefaultPrompt
}

// Path returns the configured prompt file path.
func (l *Loader) Path() string {
	return l.path
}

func (l *Loader) reset() {
	l.mu.Lock()
	l.content = ""
	l.modTime = time.Time{}
	l.mu.Unlock()
}
