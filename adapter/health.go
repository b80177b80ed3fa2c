package adapter

import "github.com/heptiolabs/healthcheck"

// NewHealthHandler builds a heptiolabs/healthcheck handler with the
// given named liveness and readiness checks already registered, for
// server/health.go to serve over HTTP.
func NewHealthHandler(liveness, readiness map[string]healthcheck.Check) healthcheck.Handler {
	h := healthcheck.NewHandler()
	for name, check := range liveness {
		h.AddLivenessCheck(name, check)
	}
	for name, check := range readiness {
		h.AddReadinessCheck(name, check)
	}
	return h
}
