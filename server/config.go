// Package server implements the dispatcher of spec.md §4.2: the
// process that owns the shared region, claims REQUEST_PENDING slots,
// and farms them out to the math and string worker pools.
package server

import (
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/localipc/shmrpc/internal/workerpool"
)

// Config controls one dispatcher run. DefaultConfig fills in every
// field a bare `shmrpc-server` invocation needs.
type Config struct {
	// MathThreads and StringThreads size the two worker pools
	// (spec.md §4.3). Zero means "pick from host CPU count".
	MathThreads   int
	StringThreads int

	// ShutdownMode is applied to both pools on SIGINT/SIGTERM.
	ShutdownMode workerpool.ShutdownMode

	// NotifyPollTimeout bounds each dispatcher-loop wait on the notify
	// semaphore, so the loop can periodically recheck its running flag
	// even with no incoming requests (spec.md §4.2 dispatcher loop).
	NotifyPollTimeout time.Duration

	// HeartbeatStaleness is the max age internal/health.Heartbeat
	// tolerates before LivenessCheck fails.
	HeartbeatStaleness time.Duration

	// LockPath and GenerationPath override the well-known paths from
	// spec.md §6, mainly so tests can run several servers side by side.
	LockPath       string
	GenerationPath string

	// TransportNamespace suffixes every shared-memory object name
	// (internal/transport.CreateServerNamed). Empty reproduces the
	// exact spec.md §6 names; tests set a unique suffix instead.
	TransportNamespace string

	// MetricsRegisterer, if non-nil, gets the dispatcher's Prometheus
	// collectors registered against it. Nil disables metrics entirely.
	MetricsRegisterer prometheus.Registerer

	Log io.Writer
}

// defaultThreads implements spec.md §9's sizing guidance of roughly
// half the host's logical cores, floored at 1, the way the teacher's
// plugin pool sizing reads gopsutil core counts rather than hardcoding
// runtime.NumCPU().
func defaultThreads() int {
	cores, err := cpu.Counts(true)
	if err != nil || cores < 1 {
		cores = 1
	}
	n := (cores - 1) / 2
	if n < 1 {
		n = 1
	}
	return n
}

// DefaultConfig returns the configuration `cmd/shmrpc-server` uses
// absent any flags.
func DefaultConfig() Config {
	n := defaultThreads()
	return Config{
		MathThreads:        n,
		StringThreads:      n,
		ShutdownMode:       workerpool.Drain,
		NotifyPollTimeout:  200 * time.Millisecond,
		HeartbeatStaleness: 5 * time.Second,
		LockPath:           "",
		GenerationPath:     "",
		Log:                os.Stdout,
	}
}
