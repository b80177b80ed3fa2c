// Package audit records the lifecycle of individual requests
// (submitted, claimed, completed) for governance/troubleshooting. It
// replaces the teacher's pkg/audit.AuditLogger / internal/audit
// stubs — which modeled plugin-governance events with no plugin
// concept in this domain — with the one audit trail spec.md's domain
// actually has: per-request events.
package audit

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/localipc/shmrpc/internal/wire"
)

// Event is one audited occurrence in a request's life.
type Event struct {
	Time      time.Time
	Kind      string // "submitted", "claimed", "completed"
	RequestID uint64
	SlotIndex int
	Command   wire.Command
	ClientPID int32
	Status    wire.Status
}

// Logger appends formatted audit events to an io.Writer, serialized
// under a mutex since the dispatcher and both worker pools log
// concurrently.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
}

// New creates a Logger writing to out. A nil out discards events.
func New(out io.Writer) *Logger {
	return &Logger{out: out}
}

// LogEvent records one audit event, matching the interface shape the
// teacher's pkg/audit.AuditLogger exposed, specialized to our event type.
func (l *Logger) LogEvent(e Event) error {
	if l == nil || l.out == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintf(l.out, "%s audit kind=%s request_id=%d slot=%d command=%s client_pid=%d status=%s\n",
		e.Time.Format(time.RFC3339Nano), e.Kind, e.RequestID, e.SlotIndex, e.Command, e.ClientPID, e.Status)
	return err
}
