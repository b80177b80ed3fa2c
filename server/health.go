package server

import (
	"github.com/heptiolabs/healthcheck"

	"github.com/localipc/shmrpc/adapter"
)

// HealthHandler builds the liveness/readiness HTTP handler for this
// dispatcher, for a caller to mux in alongside /metrics.
func (d *Dispatcher) HealthHandler() healthcheck.Handler {
	return adapter.NewHealthHandler(
		map[string]healthcheck.Check{"dispatch-loop": d.heartbeat.LivenessCheck},
		map[string]healthcheck.Check{"ready": d.readiness.ReadinessCheck},
	)
}
