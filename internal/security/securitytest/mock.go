// Package securitytest provides test doubles for the security package.
package securitytest

import (
	"sync"

	"github.com/earmeout/earmeout/internal/security"
)

// NewTestRedactor creates a Redactor with no patterns, so test strings that
// happen to look like secrets pass through unchanged.
func NewTestRedactor() *security.Redactor {
	return &security.Redactor{}
}

// AuditRecorder collects audit events for inspection.
type AuditRecorder struct {
	mu     sync.Mutex
	events []security.AuditEvent
}

// Events returns a copy of the recorded events.
func (r *AuditRecorder) Events() []security.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]security.AuditEvent(nil), r.events...)
}

// Count returns how many events of type t were recorded.
func (r *AuditRecorder) Count(t security.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// NewTestAuditLogger creates an AuditLogger that records into the
// returned AuditRecorder.
func NewTestAuditLogger() (*security.AuditLogger, *AuditRecorder) {
	rec := &AuditRecorder{}
	logger := security.NewAuditLogger(security.AuditLoggerConfig{
		OnEvent: func(e security.AuditEvent) {
			rec.mu.Lock()
			rec.events = append(rec.events, e)
			rec.mu.Unlock()
		},
	})
	return logger, rec
}
