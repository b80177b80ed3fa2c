// Package health implements the liveness/readiness checks the server
// exposes, replacing the teacher's pkg/health.HealthProvider /
// internal/health stubs (which modeled per-plugin heartbeat/liveness)
// with the two checks this single-server domain actually needs: is
// the dispatcher loop still running, and is the region mapped.
package health

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Heartbeat is a monotonically updated timestamp a long-running loop
// touches on every iteration; LivenessCheck fails once it goes stale.
type Heartbeat struct {
	lastUnixNano atomic.Int64
	maxStaleness time.Duration
}

// NewHeartbeat creates a Heartbeat considered stale after maxStaleness
// without a Beat call.
func NewHeartbeat(maxStaleness time.Duration) *Heartbeat {
	h := &Heartbeat{maxStaleness: maxStaleness}
	h.Beat()
	return h
}

// Beat records that the monitored loop made progress just now.
func (h *Heartbeat) Beat() {
	h.lastUnixNano.Store(time.Now().UnixNano())
}

// LivenessCheck implements the healthcheck.Check function signature
// (func() error), reporting staleness as an error.
func (h *Heartbeat) LivenessCheck() error {
	last := time.Unix(0, h.lastUnixNano.Load())
	if age := time.Since(last); age > h.maxStaleness {
		return fmt.Errorf("health: no heartbeat for %s (max %s)", age, h.maxStaleness)
	}
	return nil
}

// Readiness reports whether a component has finished initializing.
type Readiness struct {
	ready atomic.Bool
}

// SetReady marks the component ready (or not).
func (r *Readiness) SetReady(v bool) { r.ready.Store(v) }

// ReadinessCheck implements the healthcheck.Check function signature.
func (r *Readiness) ReadinessCheck() error {
	if !r.ready.Load() {
		return fmt.Errorf("health: component not ready")
	}
	return nil
}
